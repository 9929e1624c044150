package score

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatMusicXML Format = "musicxml"
	FormatMIDI     Format = "midi"
)

// Score is the parsed content of one score file. Once attached to a record
// it is owned by that record and must not be shared between workers.
type Score struct {
	Path   string
	Format Format
	Parts  []Part
}

type Part struct {
	ID           string
	Name         string
	Events       []Event
	Measures     []Measure
	Keys         []KeySignature
	Times        []TimeSignature
	Clefs        []Clef
	ChordSymbols []string
	// number of notes spanned by each completed slur, in order of completion
	Slurs   []int
	Repeats []string
}

type EventKind int

const (
	KindNote EventKind = iota
	KindRest
)

type TieType int

const (
	TieNone TieType = iota
	TieStart
	TieContinue
	TieStop
)

type Lyric struct {
	Verse    int
	Syllabic string
	Text     string
}

type Event struct {
	Kind      EventKind
	Pitch     Pitch
	Unpitched bool
	// quarter lengths
	Duration float64
	Type     string
	Dots     int
	// Chord marks a note sounding together with the previous note.
	Chord   bool
	Tie     TieType
	Lyrics  []Lyric
	Measure int
}

func (e Event) IsPitched() bool {
	return e.Kind == KindNote && !e.Unpitched
}

// ValueName renders the event as "Dotted Quarter Note" / "Half Rest".
func (e Event) ValueName() string {
	suffix := "Note"
	if e.Kind == KindRest {
		suffix = "Rest"
	}
	return DurationName(e.Duration, e.Dots, e.Type) + " " + suffix
}

type Measure struct {
	Number   string
	Implicit bool
	// quarter length of the measure content
	Length float64
	// quarter length implied by the time signature, 0 when unknown
	Expected float64
}

type KeySignature struct {
	Fifths int
	Mode   string
}

var majorTonics = map[int]string{
	-7: "C-", -6: "G-", -5: "D-", -4: "A-", -3: "E-", -2: "B-", -1: "F",
	0: "C", 1: "G", 2: "D", 3: "A", 4: "E", 5: "B", 6: "F#", 7: "C#",
}

var minorTonics = map[int]string{
	-7: "a-", -6: "e-", -5: "b-", -4: "f", -3: "c", -2: "g", -1: "d",
	0: "a", 1: "e", 2: "b", 3: "f#", 4: "c#", 5: "g#", 6: "d#", 7: "a#",
}

// Tonic returns the tonic pitch name, upper case, using "b" for flats.
func (k KeySignature) Tonic() string {
	var name string
	if k.IsMinor() {
		name = minorTonics[k.Fifths]
	} else {
		name = majorTonics[k.Fifths]
	}
	if name == "" {
		return ""
	}
	name = strings.ToUpper(name[:1]) + strings.ReplaceAll(name[1:], "-", "b")
	return name
}

func (k KeySignature) IsMinor() bool {
	return strings.EqualFold(k.Mode, "minor")
}

// String follows the usual "G major" / "e minor" rendering.
func (k KeySignature) String() string {
	tonic := k.Tonic()
	if tonic == "" {
		return fmt.Sprintf("%d fifths", k.Fifths)
	}
	if k.IsMinor() {
		return strings.ToLower(tonic[:1]) + tonic[1:] + " minor"
	}
	return tonic + " major"
}

type TimeSignature struct {
	Beats    int
	BeatType int
	Hidden   bool
}

func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Beats, t.BeatType)
}

// QuarterLength is the expected length of a full measure.
func (t TimeSignature) QuarterLength() float64 {
	if t.BeatType == 0 {
		return 0
	}
	return float64(t.Beats) * 4 / float64(t.BeatType)
}

type Clef struct {
	Sign         string
	Line         int
	OctaveChange int
}

var clefNames = map[string]string{
	"G2":         "Treble",
	"G1":         "French Violin",
	"F4":         "Bass",
	"F3":         "Baritone F",
	"F5":         "Subbass",
	"C1":         "Soprano",
	"C2":         "Mezzo Soprano",
	"C3":         "Alto",
	"C4":         "Tenor",
	"C5":         "Baritone C",
	"PERCUSSION": "Percussion",
	"TAB":        "Tab",
	"NONE":       "No",
}

func (c Clef) Name() string {
	sign := strings.ToUpper(strings.TrimSpace(c.Sign))
	key := sign
	if sign == "G" || sign == "F" || sign == "C" {
		key = fmt.Sprintf("%s%d", sign, c.Line)
	}
	name, ok := clefNames[key]
	if !ok {
		name = key
	}
	switch {
	case c.OctaveChange == -1 && name == "Treble":
		name = "Treble 8vb"
	case c.OctaveChange == 1 && name == "Treble":
		name = "Treble 8va"
	case c.OctaveChange == -1 && name == "Bass":
		name = "Bass 8vb"
	}
	return name + " Clef"
}

type Ambitus struct {
	Lowest     Pitch
	Highest    Pitch
	Semitones  int
	HasPitches bool
}

// Ambitus spans every pitched note of the part.
func (p Part) Ambitus() Ambitus {
	var a Ambitus
	for _, e := range p.Events {
		if !e.IsPitched() {
			continue
		}
		if !a.HasPitches {
			a.Lowest, a.Highest, a.HasPitches = e.Pitch, e.Pitch, true
			continue
		}
		if e.Pitch.MIDI() < a.Lowest.MIDI() {
			a.Lowest = e.Pitch
		}
		if e.Pitch.MIDI() > a.Highest.MIDI() {
			a.Highest = e.Pitch
		}
	}
	if a.HasPitches {
		a.Semitones = a.Highest.MIDI() - a.Lowest.MIDI()
	}
	return a
}

// Ambitus spans every pitched note of the score.
func (s *Score) Ambitus() Ambitus {
	var res Ambitus
	for _, p := range s.Parts {
		a := p.Ambitus()
		if !a.HasPitches {
			continue
		}
		if !res.HasPitches {
			res = a
			continue
		}
		if a.Lowest.MIDI() < res.Lowest.MIDI() {
			res.Lowest = a.Lowest
		}
		if a.Highest.MIDI() > res.Highest.MIDI() {
			res.Highest = a.Highest
		}
	}
	if res.HasPitches {
		res.Semitones = res.Highest.MIDI() - res.Lowest.MIDI()
	}
	return res
}

// Unpitched reports a score with no pitch content to analyze.
func (s *Score) Unpitched() bool {
	return s.Ambitus().Semitones == 0
}

// KeySignature returns the first key signature found in part order.
func (s *Score) KeySignature() (KeySignature, bool) {
	for _, p := range s.Parts {
		if len(p.Keys) > 0 {
			return p.Keys[0], true
		}
	}
	return KeySignature{}, false
}

// TimeSignatures returns the distinct time signatures in order of appearance.
func (s *Score) TimeSignatures() []TimeSignature {
	var res []TimeSignature
	seen := make(map[TimeSignature]bool)
	for _, p := range s.Parts {
		for _, t := range p.Times {
			if seen[t] {
				continue
			}
			seen[t] = true
			res = append(res, t)
		}
	}
	return res
}

// PartLabel is the stable per-part key used in feature maps.
func PartLabel(i int) string {
	return fmt.Sprintf("Part %d", i+1)
}
