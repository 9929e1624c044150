package extract

import (
	"context"
	"strings"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/score"
	"github.com/jsphweid/scoredex/util"
)

func parts(_ context.Context, in *pipeline.Input) error {
	in.Record.Other.Parts.Set(len(in.Score.Parts))
	return nil
}

func measures(_ context.Context, in *pipeline.Input) error {
	n := 0
	if len(in.Score.Parts) > 0 {
		n = len(in.Score.Parts[0].Measures)
	}
	in.Record.Other.Measures.Set(n)
	return nil
}

// repeats counts each kind of repeat marking in the first part.
func repeats(_ context.Context, in *pipeline.Input) error {
	var marks []string
	if len(in.Score.Parts) > 0 {
		marks = in.Score.Parts[0].Repeats
	}
	in.Record.Other.Repeats.Set(countOrNil(marks))
	return nil
}

// lyrics joins the first verse of the first part carrying lyrics into one
// line of text. Syllables of a split word are joined without a space.
func lyrics(_ context.Context, in *pipeline.Input) error {
	for _, p := range in.Score.Parts {
		verse, ok := firstVerse(p)
		if !ok {
			continue
		}
		var b strings.Builder
		for _, e := range p.Events {
			for _, l := range e.Lyrics {
				if l.Verse != verse {
					continue
				}
				b.WriteString(l.Text)
				if l.Syllabic != "begin" && l.Syllabic != "middle" {
					b.WriteByte(' ')
				}
			}
		}
		in.Record.Other.Lyrics.Set(strings.TrimSpace(b.String()))
		return nil
	}
	in.Record.Other.Lyrics.Set("")
	return nil
}

func firstVerse(p score.Part) (int, bool) {
	verse, found := 0, false
	for _, e := range p.Events {
		for _, l := range e.Lyrics {
			if !found || l.Verse < verse {
				verse, found = l.Verse, true
			}
		}
	}
	return verse, found
}

func chords(_ context.Context, in *pipeline.Input) error {
	in.Record.Other.Chords.Set(sequence(in.Score, func(p score.Part) []string {
		return p.ChordSymbols
	}))
	return nil
}

func slurs(_ context.Context, in *pipeline.Input) error {
	in.Record.Other.Slurs.Set(spanStats(in.Score, func(p score.Part) []int {
		return p.Slurs
	}))
	return nil
}

// spanStats totals spans over every part, keeping each distinct length once.
func spanStats(s *score.Score, perPart func(p score.Part) []int) model.SpanStats {
	var all []int
	for _, p := range s.Parts {
		all = append(all, perPart(p)...)
	}
	return model.SpanStats{Number: len(all), Lengths: util.Unique(all)}
}
