package score

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strconv"
	"strings"
)

type xmlScore struct {
	XMLName  xml.Name
	PartList []xmlScorePart `xml:"part-list>score-part"`
	Parts    []xmlPart      `xml:"part"`
}

type xmlScorePart struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Number   string
	Implicit bool
	Items    []xmlItem
}

// one child of <measure>, in document order
type xmlItem struct {
	attributes *xmlAttributes
	note       *xmlNote
	backup     int
	forward    int
	harmony    *xmlHarmony
	barline    *xmlBarline
	direction  *xmlDirection
}

type xmlAttributes struct {
	Divisions *float64 `xml:"divisions"`
	Keys      []struct {
		Fifths int    `xml:"fifths"`
		Mode   string `xml:"mode"`
	} `xml:"key"`
	Times []struct {
		Beats       string    `xml:"beats"`
		BeatType    string    `xml:"beat-type"`
		PrintObject string    `xml:"print-object,attr"`
		SenzaMisura *struct{} `xml:"senza-misura"`
	} `xml:"time"`
	Clefs []struct {
		Sign         string `xml:"sign"`
		Line         int    `xml:"line"`
		OctaveChange int    `xml:"clef-octave-change"`
	} `xml:"clef"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

type xmlNote struct {
	Grace *struct{} `xml:"grace"`
	Chord *struct{} `xml:"chord"`
	Pitch *struct {
		Step   string  `xml:"step"`
		Alter  float64 `xml:"alter"`
		Octave int     `xml:"octave"`
	} `xml:"pitch"`
	Unpitched *struct{}  `xml:"unpitched"`
	Rest      *struct{}  `xml:"rest"`
	Duration  float64    `xml:"duration"`
	Type      string     `xml:"type"`
	Dots      []struct{} `xml:"dot"`
	Ties      []xmlTie   `xml:"tie"`
	Notations []struct {
		Tied  []xmlTie `xml:"tied"`
		Slurs []struct {
			Type   string `xml:"type,attr"`
			Number string `xml:"number,attr"`
		} `xml:"slur"`
	} `xml:"notations"`
	Lyrics []struct {
		Number   string `xml:"number,attr"`
		Syllabic string `xml:"syllabic"`
		Text     string `xml:"text"`
	} `xml:"lyric"`
}

type xmlHarmony struct {
	Root struct {
		Step  string  `xml:"root-step"`
		Alter float64 `xml:"root-alter"`
	} `xml:"root"`
	Kind struct {
		Text  string `xml:"text,attr"`
		Value string `xml:",chardata"`
	} `xml:"kind"`
	Bass *struct {
		Step  string  `xml:"bass-step"`
		Alter float64 `xml:"bass-alter"`
	} `xml:"bass"`
}

type xmlBarline struct {
	Repeat *struct {
		Direction string `xml:"direction,attr"`
	} `xml:"repeat"`
	Ending *struct {
		Type string `xml:"type,attr"`
	} `xml:"ending"`
}

type xmlDirection struct {
	Types []struct {
		Words []string   `xml:"words"`
		Segno []struct{} `xml:"segno"`
		Coda  []struct{} `xml:"coda"`
	} `xml:"direction-type"`
	Sound *struct {
		DaCapo   string `xml:"dacapo,attr"`
		DalSegno string `xml:"dalsegno,attr"`
		Fine     string `xml:"fine,attr"`
		ToCoda   string `xml:"tocoda,attr"`
	} `xml:"sound"`
}

func (m *xmlMeasure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "number":
			m.Number = a.Value
		case "implicit":
			m.Implicit = a.Value == "yes"
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			var item xmlItem
			switch t.Name.Local {
			case "attributes":
				item.attributes = &xmlAttributes{}
				err = d.DecodeElement(item.attributes, &t)
			case "note":
				item.note = &xmlNote{}
				err = d.DecodeElement(item.note, &t)
			case "backup", "forward":
				var v struct {
					Duration int `xml:"duration"`
				}
				err = d.DecodeElement(&v, &t)
				if t.Name.Local == "backup" {
					item.backup = v.Duration
				} else {
					item.forward = v.Duration
				}
			case "harmony":
				item.harmony = &xmlHarmony{}
				err = d.DecodeElement(item.harmony, &t)
			case "barline":
				item.barline = &xmlBarline{}
				err = d.DecodeElement(item.barline, &t)
			case "direction":
				item.direction = &xmlDirection{}
				err = d.DecodeElement(item.direction, &t)
			default:
				err = d.Skip()
				if err == nil {
					continue
				}
			}
			if err != nil {
				return err
			}
			m.Items = append(m.Items, item)
		}
	}
}

// ReadMusicXMLFile parses an uncompressed partwise MusicXML file.
func ReadMusicXMLFile(filepath string) (*Score, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("read musicxml file: %w", err)
	}
	s, err := ReadMusicXML(bytes.NewReader(dat))
	if err != nil {
		return nil, err
	}
	s.Path = filepath
	return s, nil
}

// ReadCompressedMusicXMLFile parses an .mxl archive, following
// META-INF/container.xml to the root file when present.
func ReadCompressedMusicXMLFile(filepath string) (*Score, error) {
	zr, err := zip.OpenReader(filepath)
	if err != nil {
		return nil, fmt.Errorf("%w: open mxl archive: %v", ErrUnparsable, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	rootName := ""
	if f, ok := files["META-INF/container.xml"]; ok {
		var container struct {
			Rootfiles []struct {
				FullPath string `xml:"full-path,attr"`
			} `xml:"rootfiles>rootfile"`
		}
		if err := decodeZipXML(f, &container); err == nil && len(container.Rootfiles) > 0 {
			rootName = container.Rootfiles[0].FullPath
		}
	}
	if rootName == "" {
		for _, f := range zr.File {
			ext := strings.ToLower(path.Ext(f.Name))
			if !strings.HasPrefix(f.Name, "META-INF/") && (ext == ".xml" || ext == ".musicxml") {
				rootName = f.Name
				break
			}
		}
	}
	root, ok := files[rootName]
	if !ok {
		return nil, fmt.Errorf("%w: mxl archive has no score document", ErrUnparsable)
	}

	rc, err := root.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnparsable, rootName, err)
	}
	defer rc.Close()

	s, err := ReadMusicXML(rc)
	if err != nil {
		return nil, err
	}
	s.Path = filepath
	return s, nil
}

func decodeZipXML(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// ReadMusicXML parses partwise MusicXML from r.
func ReadMusicXML(r io.Reader) (*Score, error) {
	var doc xmlScore
	decoder := xml.NewDecoder(r)
	// MusicXML files declare their DTD; non-UTF-8 charsets are passed through.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	decoder.Strict = false
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if doc.XMLName.Local != "score-partwise" {
		return nil, fmt.Errorf("%w: root element <%s>, want <score-partwise>", ErrUnparsable, doc.XMLName.Local)
	}

	names := make(map[string]string, len(doc.PartList))
	for _, sp := range doc.PartList {
		names[sp.ID] = strings.TrimSpace(sp.Name)
	}

	s := &Score{Format: FormatMusicXML}
	for _, xp := range doc.Parts {
		s.Parts = append(s.Parts, convertPart(xp, names[xp.ID]))
	}
	return s, nil
}

type partBuilder struct {
	part      Part
	divisions float64
	time      TimeSignature
	hasTime   bool
	openSlurs map[string]int
}

func convertPart(xp xmlPart, name string) Part {
	b := &partBuilder{
		part:      Part{ID: xp.ID, Name: name},
		divisions: 1,
		openSlurs: make(map[string]int),
	}
	for i, xm := range xp.Measures {
		b.measure(i, xm)
	}
	return b.part
}

func (b *partBuilder) measure(index int, xm xmlMeasure) {
	var pos, maxPos float64
	for _, item := range xm.Items {
		switch {
		case item.attributes != nil:
			b.attributes(item.attributes)
		case item.note != nil:
			pos += b.note(index, item.note)
		case item.backup > 0:
			pos -= float64(item.backup) / b.divisions
		case item.forward > 0:
			pos += float64(item.forward) / b.divisions
		case item.harmony != nil:
			if figure := harmonyFigure(item.harmony); figure != "" {
				b.part.ChordSymbols = append(b.part.ChordSymbols, figure)
			}
		case item.barline != nil:
			b.part.Repeats = append(b.part.Repeats, barlineRepeats(item.barline)...)
		case item.direction != nil:
			b.part.Repeats = append(b.part.Repeats, directionRepeats(item.direction)...)
		}
		if pos > maxPos {
			maxPos = pos
		}
	}

	m := Measure{Number: xm.Number, Implicit: xm.Implicit, Length: maxPos}
	if b.hasTime {
		m.Expected = b.time.QuarterLength()
	}
	b.part.Measures = append(b.part.Measures, m)
}

func (b *partBuilder) attributes(a *xmlAttributes) {
	if a.Divisions != nil && *a.Divisions > 0 {
		b.divisions = *a.Divisions
	}
	for _, k := range a.Keys {
		mode := strings.ToLower(strings.TrimSpace(k.Mode))
		if mode == "" {
			mode = "major"
		}
		b.part.Keys = append(b.part.Keys, KeySignature{Fifths: k.Fifths, Mode: mode})
	}
	for _, t := range a.Times {
		if t.SenzaMisura != nil {
			continue
		}
		ts := TimeSignature{
			Beats:    sumBeats(t.Beats),
			BeatType: atoiDefault(t.BeatType, 4),
			Hidden:   t.PrintObject == "no",
		}
		b.time, b.hasTime = ts, true
		b.part.Times = append(b.part.Times, ts)
	}
	for _, c := range a.Clefs {
		b.part.Clefs = append(b.part.Clefs, Clef{Sign: c.Sign, Line: c.Line, OctaveChange: c.OctaveChange})
	}
}

// returns how far the note advances the measure position
func (b *partBuilder) note(measure int, n *xmlNote) float64 {
	if n.Grace != nil {
		return 0
	}
	e := Event{
		Kind:     KindNote,
		Duration: n.Duration / b.divisions,
		Type:     n.Type,
		Dots:     len(n.Dots),
		Chord:    n.Chord != nil,
		Measure:  measure,
	}
	switch {
	case n.Rest != nil:
		e.Kind = KindRest
	case n.Pitch != nil:
		e.Pitch = Pitch{
			Step:   stepByte(n.Pitch.Step),
			Alter:  int(math.Round(n.Pitch.Alter)),
			Octave: n.Pitch.Octave,
		}
	default:
		e.Unpitched = true
	}
	e.Tie = tieType(n)

	for _, l := range n.Lyrics {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		e.Lyrics = append(e.Lyrics, Lyric{Verse: atoiDefault(l.Number, 1), Syllabic: l.Syllabic, Text: text})
	}

	if e.Kind == KindNote && !e.Chord {
		for num := range b.openSlurs {
			b.openSlurs[num]++
		}
	}
	for _, notations := range n.Notations {
		for _, slur := range notations.Slurs {
			num := slur.Number
			if num == "" {
				num = "1"
			}
			switch slur.Type {
			case "start":
				b.openSlurs[num] = 1
			case "stop":
				if length, ok := b.openSlurs[num]; ok {
					b.part.Slurs = append(b.part.Slurs, length)
					delete(b.openSlurs, num)
				}
			}
		}
	}

	b.part.Events = append(b.part.Events, e)
	if e.Chord {
		return 0
	}
	return e.Duration
}

func tieType(n *xmlNote) TieType {
	var start, stop bool
	mark := func(t string) {
		switch t {
		case "start":
			start = true
		case "stop":
			stop = true
		case "continue":
			start, stop = true, true
		}
	}
	for _, t := range n.Ties {
		mark(t.Type)
	}
	for _, notations := range n.Notations {
		for _, t := range notations.Tied {
			mark(t.Type)
		}
	}
	switch {
	case start && stop:
		return TieContinue
	case start:
		return TieStart
	case stop:
		return TieStop
	}
	return TieNone
}

var kindAbbreviations = map[string]string{
	"major":              "",
	"minor":              "m",
	"augmented":          "+",
	"diminished":         "dim",
	"dominant":           "7",
	"major-seventh":      "maj7",
	"minor-seventh":      "m7",
	"diminished-seventh": "dim7",
	"augmented-seventh":  "+7",
	"half-diminished":    "m7b5",
	"major-minor":        "m(maj7)",
	"major-sixth":        "6",
	"minor-sixth":        "m6",
	"dominant-ninth":     "9",
	"major-ninth":        "maj9",
	"minor-ninth":        "m9",
	"dominant-11th":      "11",
	"dominant-13th":      "13",
	"suspended-second":   "sus2",
	"suspended-fourth":   "sus4",
	"power":              "5",
	"none":               "N.C.",
}

func harmonyFigure(h *xmlHarmony) string {
	step := strings.TrimSpace(h.Root.Step)
	if step == "" {
		return ""
	}
	root := Pitch{Step: stepByte(step), Alter: int(math.Round(h.Root.Alter))}.Name()

	kind := strings.TrimSpace(h.Kind.Text)
	if kind == "" {
		value := strings.TrimSpace(h.Kind.Value)
		if abbr, ok := kindAbbreviations[value]; ok {
			kind = abbr
		} else {
			kind = value
		}
	}
	figure := root + kind
	if h.Bass != nil && strings.TrimSpace(h.Bass.Step) != "" {
		bass := Pitch{Step: stepByte(h.Bass.Step), Alter: int(math.Round(h.Bass.Alter))}
		figure += "/" + bass.Name()
	}
	return figure
}

func barlineRepeats(bl *xmlBarline) []string {
	var res []string
	if bl.Repeat != nil && bl.Repeat.Direction == "backward" {
		res = append(res, "repeat sign")
	}
	if bl.Ending != nil && bl.Ending.Type == "start" {
		res = append(res, "ending")
	}
	return res
}

func directionRepeats(dir *xmlDirection) []string {
	found := make(map[string]bool)
	var res []string
	add := func(name string) {
		if !found[name] {
			found[name] = true
			res = append(res, name)
		}
	}
	for _, dt := range dir.Types {
		for _, w := range dt.Words {
			if name := repeatWords(w); name != "" {
				add(name)
			}
		}
		if len(dt.Segno) > 0 {
			add("segno")
		}
		if len(dt.Coda) > 0 {
			add("coda")
		}
	}
	if s := dir.Sound; s != nil {
		if s.DaCapo == "yes" {
			add("da capo")
		}
		if s.DalSegno != "" {
			add("dal segno")
		}
		if s.Fine != "" {
			add("fine")
		}
		if s.ToCoda != "" {
			add("to coda")
		}
	}
	return res
}

func repeatWords(words string) string {
	w := strings.ToLower(strings.TrimSpace(words))
	switch {
	case strings.HasPrefix(w, "d.c.") || strings.HasPrefix(w, "da capo"):
		return "da capo"
	case strings.HasPrefix(w, "d.s.") || strings.HasPrefix(w, "dal segno"):
		return "dal segno"
	case strings.HasPrefix(w, "to coda"):
		return "to coda"
	case w == "fine":
		return "fine"
	}
	return ""
}

func stepByte(step string) byte {
	step = strings.ToUpper(strings.TrimSpace(step))
	if step == "" || stepIndex(step[0]) < 0 {
		return 'C'
	}
	return step[0]
}

func sumBeats(beats string) int {
	total := 0
	for _, part := range strings.Split(beats, "+") {
		total += atoiDefault(part, 0)
	}
	if total == 0 {
		return 4
	}
	return total
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
