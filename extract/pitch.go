package extract

import (
	"context"
	"fmt"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/score"
	"github.com/jsphweid/scoredex/util"
)

func keySignature(_ context.Context, in *pipeline.Input) error {
	f := &in.Record.Pitch.KeySignature
	if in.Score.Unpitched() {
		f.SetNotApplicable(model.Key{Name: "Unpitched"}, reasonUnpitched)
		return nil
	}
	ks, ok := in.Score.KeySignature()
	if !ok {
		f.SetNotApplicable(model.Key{}, "no key signature")
		return nil
	}
	mode := "major"
	if ks.IsMinor() {
		mode = "minor"
	}
	f.Set(model.Key{Tonic: ks.Tonic(), Mode: mode, Fifths: ks.Fifths, Name: ks.String()})
	return nil
}

func mode(_ context.Context, in *pipeline.Input) error {
	p := in.Record.Pitch
	key, ok := p.KeySignature.Get()
	if !ok {
		p.Mode.SetNotApplicable("", p.KeySignature.Why())
		return nil
	}
	p.Mode.Set(key.Mode)
	return nil
}

func clefs(_ context.Context, in *pipeline.Input) error {
	var names []string
	for _, p := range in.Score.Parts {
		for _, c := range p.Clefs {
			names = append(names, c.Name())
		}
	}
	in.Record.Pitch.Clefs.Set(util.Unique(names))
	return nil
}

func pitchRange(_ context.Context, in *pipeline.Input) error {
	var ranges model.PartRanges
	if len(in.Score.Parts) > 0 {
		ranges = make(model.PartRanges, len(in.Score.Parts))
	}
	unpitched := in.Score.Unpitched()
	for i, p := range in.Score.Parts {
		a := p.Ambitus()
		if unpitched || !a.HasPitches {
			ranges[score.PartLabel(i)] = model.PartRange{}
			continue
		}
		ranges[score.PartLabel(i)] = model.PartRange{
			Lowest:    a.Lowest.NameWithOctave(),
			Highest:   a.Highest.NameWithOctave(),
			Semitones: a.Semitones,
			Interval:  score.IntervalName(a.Lowest, a.Highest),
		}
	}
	if unpitched {
		in.Record.Pitch.Range.SetNotApplicable(ranges, reasonUnpitched)
		return nil
	}
	in.Record.Pitch.Range.Set(ranges)
	return nil
}

func letterNames(_ context.Context, in *pipeline.Input) error {
	if in.Score.Unpitched() {
		in.Record.Pitch.LetterNames.SetNotApplicable(emptySequence(in.Score), reasonUnpitched)
		return nil
	}
	in.Record.Pitch.LetterNames.Set(sequence(in.Score, func(p score.Part) []string {
		var res []string
		for _, e := range p.Events {
			if e.IsPitched() {
				res = append(res, e.Pitch.Name())
			}
		}
		return res
	}))
	return nil
}

// solfege reads the letter names already computed for the record and names
// each one relative to the tonic of the key signature.
func solfege(_ context.Context, in *pipeline.Input) error {
	p := in.Record.Pitch
	key, keyOK := p.KeySignature.Get()
	letters, lettersOK := p.LetterNames.Get()
	if !keyOK || !lettersOK {
		reason := p.KeySignature.Why()
		if reason == "" {
			reason = p.LetterNames.Why()
		}
		p.Solfege.SetNotApplicable(emptySequence(in.Score), reason)
		return nil
	}
	tonic, ok := score.ParseName(key.Tonic)
	if !ok {
		return fmt.Errorf("cannot read tonic %q", key.Tonic)
	}

	var seq model.Sequence
	if len(letters.All) > 0 {
		seq.All = make(map[string][]string, len(letters.All))
	}
	var all []string
	for part, names := range letters.All {
		var syl []string
		for _, name := range names {
			pitch, ok := score.ParseName(name)
			if !ok {
				return fmt.Errorf("cannot read note name %q", name)
			}
			syl = append(syl, score.Solfege(tonic, pitch))
		}
		seq.All[part] = syl
		all = append(all, syl...)
	}
	seq.Types = countOrNil(all)
	p.Solfege.Set(seq)
	return nil
}

func intervals(_ context.Context, in *pipeline.Input) error {
	if in.Score.Unpitched() {
		in.Record.Pitch.Intervals.SetNotApplicable(emptySequence(in.Score), reasonUnpitched)
		return nil
	}
	in.Record.Pitch.Intervals.Set(sequence(in.Score, func(p score.Part) []string {
		var res []string
		var prev *score.Pitch
		for _, e := range p.Events {
			if !e.IsPitched() || e.Chord {
				continue
			}
			pitch := e.Pitch
			if prev != nil {
				res = append(res, score.IntervalName(*prev, pitch))
			}
			prev = &pitch
		}
		return res
	}))
	return nil
}
