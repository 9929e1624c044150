// Package extract holds the concrete feature extractors run by the pipeline.
package extract

import (
	"context"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/score"
	"github.com/jsphweid/scoredex/util"
)

const reasonUnpitched = "score has no pitch content"

type extractFunc func(ctx context.Context, in *pipeline.Input) error

// extractor adapts a function to pipeline.Extractor.
type extractor struct {
	key  model.FeatureKey
	deps []model.FeatureKey
	fn   extractFunc
}

func (e extractor) Key() model.FeatureKey         { return e.key }
func (e extractor) DependsOn() []model.FeatureKey { return e.deps }

func (e extractor) Extract(ctx context.Context, in *pipeline.Input) error {
	return e.fn(ctx, in)
}

func newExtractor(key model.FeatureKey, fn extractFunc, deps ...model.FeatureKey) pipeline.Extractor {
	return extractor{key: key, deps: deps, fn: fn}
}

// Default returns every extractor in declaration order. The about extractor
// is included only when src is non-nil.
func Default(src AboutSource) []pipeline.Extractor {
	res := []pipeline.Extractor{
		newExtractor(model.RhythmTimeSignatures, timeSignatures),
		newExtractor(model.RhythmMeter, meter, model.RhythmTimeSignatures),
		newExtractor(model.RhythmValues, values),
		newExtractor(model.RhythmAnacrusis, anacrusis),
		newExtractor(model.RhythmTies, ties),

		newExtractor(model.PitchKeySignature, keySignature),
		newExtractor(model.PitchMode, mode, model.PitchKeySignature),
		newExtractor(model.PitchClefs, clefs),
		newExtractor(model.PitchRange, pitchRange),
		newExtractor(model.PitchLetterNames, letterNames),
		newExtractor(model.PitchSolfege, solfege, model.PitchKeySignature, model.PitchLetterNames),
		newExtractor(model.PitchIntervals, intervals),

		newExtractor(model.OtherParts, parts),
		newExtractor(model.OtherMeasures, measures),
		newExtractor(model.OtherRepeats, repeats),
		newExtractor(model.OtherLyrics, lyrics),
		newExtractor(model.OtherChords, chords),
		newExtractor(model.OtherSlurs, slurs),
	}
	if src != nil {
		res = append(res, About(src))
	}
	return res
}

// sequence collects per-part values keyed by part label and counts them
// across the score.
//
// Empty collections are left nil throughout: the catalog encoding does not
// tell an empty slice or map from a nil one.
func sequence(s *score.Score, perPart func(p score.Part) []string) model.Sequence {
	seq := model.Sequence{All: partMap(s)}
	var all []string
	for i, p := range s.Parts {
		vals := perPart(p)
		seq.All[score.PartLabel(i)] = vals
		all = append(all, vals...)
	}
	seq.Types = countOrNil(all)
	return seq
}

// emptySequence lists every part with no values.
func emptySequence(s *score.Score) model.Sequence {
	seq := model.Sequence{All: partMap(s)}
	for i := range s.Parts {
		seq.All[score.PartLabel(i)] = nil
	}
	return seq
}

func partMap(s *score.Score) map[string][]string {
	if len(s.Parts) == 0 {
		return nil
	}
	return make(map[string][]string, len(s.Parts))
}

func countOrNil(values []string) map[string]int {
	if len(values) == 0 {
		return nil
	}
	return util.Count(values)
}
