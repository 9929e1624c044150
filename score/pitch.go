package score

import (
	"strconv"
	"strings"
)

const steps = "CDEFGAB"

var stepSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

type Pitch struct {
	Step   byte
	Alter  int
	Octave int
}

func stepIndex(step byte) int {
	return strings.IndexByte(steps, step)
}

// Name is the letter name without octave, e.g. "C#", "Bb".
func (p Pitch) Name() string {
	var b strings.Builder
	b.WriteByte(p.Step)
	switch {
	case p.Alter > 0:
		b.WriteString(strings.Repeat("#", p.Alter))
	case p.Alter < 0:
		b.WriteString(strings.Repeat("b", -p.Alter))
	}
	return b.String()
}

func (p Pitch) NameWithOctave() string {
	return p.Name() + strconv.Itoa(p.Octave)
}

// MIDI returns the MIDI note number, C4 = 60.
func (p Pitch) MIDI() int {
	idx := stepIndex(p.Step)
	if idx < 0 {
		return 0
	}
	return (p.Octave+1)*12 + stepSemitones[idx] + p.Alter
}

func (p Pitch) PitchClass() int {
	return ((p.MIDI() % 12) + 12) % 12
}

func (p Pitch) diatonic() int {
	return p.Octave*7 + stepIndex(p.Step)
}

var sharpSpelling = [12]Pitch{
	{Step: 'C'}, {Step: 'C', Alter: 1}, {Step: 'D'}, {Step: 'D', Alter: 1}, {Step: 'E'}, {Step: 'F'},
	{Step: 'F', Alter: 1}, {Step: 'G'}, {Step: 'G', Alter: 1}, {Step: 'A'}, {Step: 'A', Alter: 1}, {Step: 'B'},
}

var flatSpelling = [12]Pitch{
	{Step: 'C'}, {Step: 'D', Alter: -1}, {Step: 'D'}, {Step: 'E', Alter: -1}, {Step: 'E'}, {Step: 'F'},
	{Step: 'G', Alter: -1}, {Step: 'G'}, {Step: 'A', Alter: -1}, {Step: 'A'}, {Step: 'B', Alter: -1}, {Step: 'B'},
}

// PitchFromMIDI spells a MIDI note number with sharps, or flats when preferFlats.
func PitchFromMIDI(n int, preferFlats bool) Pitch {
	pc := ((n % 12) + 12) % 12
	p := sharpSpelling[pc]
	if preferFlats {
		p = flatSpelling[pc]
	}
	p.Octave = n/12 - 1
	return p
}

// ParseName reads a letter name such as "F#" or "Bb" (octave 4 assumed).
func ParseName(name string) (Pitch, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Pitch{}, false
	}
	step := strings.ToUpper(name[:1])[0]
	if stepIndex(step) < 0 {
		return Pitch{}, false
	}
	p := Pitch{Step: step, Octave: 4}
	for _, r := range name[1:] {
		switch r {
		case '#':
			p.Alter++
		case 'b', '-':
			p.Alter--
		default:
			return Pitch{}, false
		}
	}
	return p, true
}

var perfectClasses = map[int]bool{0: true, 3: true, 4: true}

// IntervalName names the interval between two pitches regardless of
// direction, e.g. "M3", "P5", "m10", "A4".
func IntervalName(from, to Pitch) string {
	d := to.diatonic() - from.diatonic()
	s := to.MIDI() - from.MIDI()
	if d < 0 || (d == 0 && s < 0) {
		d, s = -d, -s
	}
	simple := d % 7
	base := stepSemitones[simple] + 12*(d/7)
	diff := s - base

	var quality string
	if perfectClasses[simple] {
		switch {
		case diff == 0:
			quality = "P"
		case diff > 0:
			quality = strings.Repeat("A", diff)
		default:
			quality = strings.Repeat("d", -diff)
		}
	} else {
		switch {
		case diff == 0:
			quality = "M"
		case diff == -1:
			quality = "m"
		case diff > 0:
			quality = strings.Repeat("A", diff)
		default:
			quality = strings.Repeat("d", -diff-1)
		}
	}
	return quality + strconv.Itoa(d+1)
}
