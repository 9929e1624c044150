package extract

import (
	"context"
	"fmt"

	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/score"
	"github.com/jsphweid/scoredex/util"
)

const (
	meterDuple   = "duple"
	meterTriple  = "triple"
	meterMixed   = "mixed"
	meterUnknown = "unknown"
)

func timeSignatures(_ context.Context, in *pipeline.Input) error {
	var names []string
	for _, ts := range in.Score.TimeSignatures() {
		names = append(names, ts.String())
	}
	in.Record.Rhythm.TimeSignatures.Set(util.Unique(names))
	return nil
}

// meter classifies by the top number of each time signature: divisible by
// three is triple, anything else duple.
func meter(_ context.Context, in *pipeline.Input) error {
	sigs, _ := in.Record.Rhythm.TimeSignatures.Get()
	if len(sigs) == 0 {
		in.Record.Rhythm.Meter.Set(meterUnknown)
		return nil
	}
	kinds := make([]string, 0, len(sigs))
	for _, s := range sigs {
		var beats, beatType int
		if _, err := fmt.Sscanf(s, "%d/%d", &beats, &beatType); err != nil {
			return fmt.Errorf("cannot read time signature %q: %w", s, err)
		}
		if beats%3 == 0 {
			kinds = append(kinds, meterTriple)
		} else {
			kinds = append(kinds, meterDuple)
		}
	}
	kinds = util.Unique(kinds)
	if len(kinds) > 1 {
		in.Record.Rhythm.Meter.Set(meterMixed)
		return nil
	}
	in.Record.Rhythm.Meter.Set(kinds[0])
	return nil
}

func values(_ context.Context, in *pipeline.Input) error {
	in.Record.Rhythm.Values.Set(sequence(in.Score, func(p score.Part) []string {
		var res []string
		for _, e := range p.Events {
			if e.Chord {
				continue
			}
			res = append(res, e.ValueName())
		}
		return res
	}))
	return nil
}

// anacrusis is the length in quarters of an incomplete first measure of the
// first part, or zero when the piece starts on a full measure.
func anacrusis(_ context.Context, in *pipeline.Input) error {
	f := &in.Record.Rhythm.Anacrusis
	if len(in.Score.Parts) == 0 || len(in.Score.Parts[0].Measures) == 0 {
		f.SetNotApplicable(0, "no measures")
		return nil
	}
	ms := in.Score.Parts[0].Measures
	first := ms[0]
	short := first.Expected > 0 && first.Length < first.Expected && len(ms) > 1
	if first.Implicit || short {
		f.Set(first.Length)
		return nil
	}
	f.Set(0)
	return nil
}

// ties counts tie chains and the distinct number of notes they join.
func ties(_ context.Context, in *pipeline.Input) error {
	stats := spanStats(in.Score, func(p score.Part) []int {
		var lengths []int
		length := 0
		for _, e := range p.Events {
			switch e.Tie {
			case score.TieStart:
				if length > 0 {
					lengths = append(lengths, length)
				}
				length = 2
			case score.TieContinue:
				if length == 0 {
					length = 1
				}
				length++
			case score.TieStop:
				if length > 0 {
					lengths = append(lengths, length)
					length = 0
				}
			}
		}
		if length > 0 {
			lengths = append(lengths, length)
		}
		return lengths
	})
	in.Record.Rhythm.Ties.Set(stats)
	return nil
}
