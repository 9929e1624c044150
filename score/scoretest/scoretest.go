// Package scoretest builds small MusicXML documents for tests.
package scoretest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const divisions = 4

var typeDivisions = map[string]int{
	"whole":   16,
	"half":    8,
	"quarter": 4,
	"eighth":  2,
	"16th":    1,
}

// Piece describes a single-key, single-meter score. Each part is a list of
// note tokens "<pitch>:<type>[:<lyric>]" where pitch is e.g. "C4", "F#5",
// "Bb3", "rest" or "x" (unpitched).
type Piece struct {
	Fifths   int
	Mode     string
	Beats    int
	BeatType int
	Parts    [][]string
}

// Melody is a one-part piece in C major, 4/4.
func Melody(notes ...string) Piece {
	return Piece{Beats: 4, BeatType: 4, Parts: [][]string{notes}}
}

// XML renders the piece as partwise MusicXML.
func (p Piece) XML() string {
	mode := p.Mode
	if mode == "" {
		mode = "major"
	}
	beats, beatType := p.Beats, p.BeatType
	if beats == 0 || beatType == 0 {
		beats, beatType = 4, 4
	}
	measureLen := beats * divisions * 4 / beatType

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<score-partwise version="3.1"><part-list>`)
	for i := range p.Parts {
		fmt.Fprintf(&b, `<score-part id="P%d"><part-name>Voice %d</part-name></score-part>`, i+1, i+1)
	}
	b.WriteString(`</part-list>`)

	for i, notes := range p.Parts {
		fmt.Fprintf(&b, `<part id="P%d">`, i+1)
		measure, filled := 1, 0
		openMeasure := func() {
			fmt.Fprintf(&b, `<measure number="%d">`, measure)
			if measure == 1 {
				fmt.Fprintf(&b, `<attributes><divisions>%d</divisions><key><fifths>%d</fifths><mode>%s</mode></key>`+
					`<time><beats>%d</beats><beat-type>%d</beat-type></time><clef><sign>G</sign><line>2</line></clef></attributes>`,
					divisions, p.Fifths, mode, beats, beatType)
			}
		}
		openMeasure()
		for _, token := range notes {
			if filled >= measureLen {
				b.WriteString(`</measure>`)
				measure++
				filled = 0
				openMeasure()
			}
			dur := writeNote(&b, token)
			filled += dur
		}
		b.WriteString(`</measure></part>`)
	}
	b.WriteString(`</score-partwise>`)
	return b.String()
}

func writeNote(b *strings.Builder, token string) int {
	fields := strings.Split(token, ":")
	pitch, typ := fields[0], "quarter"
	if len(fields) > 1 {
		typ = fields[1]
	}
	dur, ok := typeDivisions[typ]
	if !ok {
		panic("scoretest: unknown note type " + typ)
	}

	b.WriteString(`<note>`)
	switch pitch {
	case "rest":
		b.WriteString(`<rest/>`)
	case "x":
		b.WriteString(`<unpitched><display-step>E</display-step><display-octave>4</display-octave></unpitched>`)
	default:
		step, alter, octave := splitPitch(pitch)
		fmt.Fprintf(b, `<pitch><step>%s</step>`, step)
		if alter != 0 {
			fmt.Fprintf(b, `<alter>%d</alter>`, alter)
		}
		fmt.Fprintf(b, `<octave>%d</octave></pitch>`, octave)
	}
	fmt.Fprintf(b, `<duration>%d</duration><type>%s</type>`, dur, typ)
	if len(fields) > 2 && fields[2] != "" {
		fmt.Fprintf(b, `<lyric number="1"><syllabic>single</syllabic><text>%s</text></lyric>`, fields[2])
	}
	b.WriteString(`</note>`)
	return dur
}

func splitPitch(pitch string) (string, int, int) {
	step := strings.ToUpper(pitch[:1])
	rest := pitch[1:]
	alter := 0
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			alter++
		} else {
			alter--
		}
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		octave = 4
	}
	return step, alter, octave
}

// WriteFile writes content under dir (creating parents) and returns its path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
