package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	key  model.FeatureKey
	deps []model.FeatureKey
	fn   func(ctx context.Context, in *Input) error
}

func (f fakeExtractor) Key() model.FeatureKey                        { return f.key }
func (f fakeExtractor) DependsOn() []model.FeatureKey                { return f.deps }
func (f fakeExtractor) Extract(ctx context.Context, in *Input) error { return f.fn(ctx, in) }

func setParts(ctx context.Context, in *Input) error {
	in.Record.Other.Parts.Set(len(in.Score.Parts))
	return nil
}

func setMeasures(ctx context.Context, in *Input) error {
	parts, _ := in.Record.Other.Parts.Get()
	in.Record.Other.Measures.Set(parts * 10)
	return nil
}

func setLyrics(ctx context.Context, in *Input) error {
	in.Record.Other.Lyrics.Set(in.Record.Title)
	return nil
}

var fakeParser = score.ParserFunc(func(path string) (*score.Score, error) {
	if strings.Contains(path, "broken") {
		return nil, fmt.Errorf("%w: %s", score.ErrUnparsable, path)
	}
	return &score.Score{Path: path, Parts: make([]score.Part, 2)}, nil
})

func records(titles ...string) map[string]*model.ScoreRecord {
	res := make(map[string]*model.ScoreRecord, len(titles))
	for _, t := range titles {
		res[t] = &model.ScoreRecord{Title: t, FileInfo: model.FileInfo{Path: "/c/" + t + ".xml"}}
	}
	return res
}

func newPipeline(t *testing.T, opts Options, extractors ...Extractor) *Pipeline {
	t.Helper()
	if opts.Parser == nil {
		opts.Parser = fakeParser
	}
	p, err := New(extractors, opts, logging.NewNop())
	require.NoError(t, err)
	return p
}

func TestGraphValidation(t *testing.T) {
	noop := func(context.Context, *Input) error { return nil }
	tests := map[string]struct {
		extractors []Extractor
		kind       error
		msg        string
	}{
		"empty": {nil, ErrInvalidGraph, "no extractors"},
		"duplicate": {[]Extractor{
			fakeExtractor{key: model.OtherParts, fn: noop},
			fakeExtractor{key: model.OtherParts, fn: noop},
		}, ErrInvalidGraph, "duplicate"},
		"unknown dependency": {[]Extractor{
			fakeExtractor{key: model.PitchSolfege, deps: []model.FeatureKey{model.PitchKeySignature}, fn: noop},
		}, ErrInvalidGraph, "unknown feature"},
		"self-loop": {[]Extractor{
			fakeExtractor{key: model.PitchMode, deps: []model.FeatureKey{model.PitchMode}, fn: noop},
		}, ErrInvalidGraph, "self-loop"},
		"cycle": {[]Extractor{
			fakeExtractor{key: model.PitchMode, deps: []model.FeatureKey{model.PitchKeySignature}, fn: noop},
			fakeExtractor{key: model.PitchKeySignature, deps: []model.FeatureKey{model.PitchMode}, fn: noop},
		}, ErrCycle, "pitch.mode -> pitch.keySignature -> pitch.mode"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(tt.extractors, Options{}, logging.NewNop())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDependenciesRunFirst(t *testing.T) {
	p := newPipeline(t, Options{},
		fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
		fakeExtractor{key: model.OtherMeasures, deps: []model.FeatureKey{model.OtherParts}, fn: setMeasures},
		fakeExtractor{key: model.OtherParts, fn: setParts},
	)
	assert.Equal(t, []model.FeatureKey{model.OtherLyrics, model.OtherParts, model.OtherMeasures}, p.Keys())

	recs := records("waltz")
	summary, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Empty(summary.Failures)
	assert.Equal(1, summary.Records)
	assert.Equal(20, recs["waltz"].Other.Measures.Value)
	assert.Equal("waltz", recs["waltz"].Other.Lyrics.Value)
	assert.Nil(recs["waltz"].FileInfo.Parsed())
}

func TestFailureIsIsolated(t *testing.T) {
	p := newPipeline(t, Options{Workers: 2},
		fakeExtractor{key: model.OtherParts, fn: func(ctx context.Context, in *Input) error {
			if in.Record.Title == "bad" {
				return errors.New("no parts")
			}
			return setParts(ctx, in)
		}},
		fakeExtractor{key: model.OtherMeasures, deps: []model.FeatureKey{model.OtherParts}, fn: setMeasures},
		fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
	)

	recs := records("bad", "good")
	summary, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert := assert.New(t)
	bad := recs["bad"].Other
	assert.Equal(model.Unavailable, bad.Parts.State)
	assert.Equal("no parts", bad.Parts.Reason)
	assert.Equal(model.Unavailable, bad.Measures.State)
	assert.Equal("dependency other.parts unavailable", bad.Measures.Reason)
	assert.Equal(model.Computed, bad.Lyrics.State)

	assert.Equal(model.Computed, recs["good"].Other.Measures.State)
	assert.Equal([]Failure{
		{Title: "bad", Feature: model.OtherMeasures, Reason: "dependency other.parts unavailable"},
		{Title: "bad", Feature: model.OtherParts, Reason: "no parts"},
	}, summary.Failures)
	assert.Equal([]string{"bad"}, summary.FailedTitles())
}

func TestPanicsAreRecovered(t *testing.T) {
	p := newPipeline(t, Options{},
		fakeExtractor{key: model.OtherParts, fn: func(context.Context, *Input) error { panic("kaboom") }},
		fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
	)
	recs := records("x")
	_, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert.Equal(t, "panic: kaboom", recs["x"].Other.Parts.Reason)
	assert.Equal(t, model.Computed, recs["x"].Other.Lyrics.State)
}

func TestExtractorWithoutValueIsUnavailable(t *testing.T) {
	p := newPipeline(t, Options{},
		fakeExtractor{key: model.OtherParts, fn: func(context.Context, *Input) error { return nil }},
	)
	recs := records("x")
	_, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)
	assert.Equal(t, "extractor produced no value", recs["x"].Other.Parts.Reason)
}

func TestParseFailureMarksEveryFeature(t *testing.T) {
	p := newPipeline(t, Options{},
		fakeExtractor{key: model.OtherParts, fn: setParts},
		fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
	)
	recs := records("broken", "fine")
	summary, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Len(summary.Failures, 2)
	assert.Equal(model.Unavailable, recs["broken"].Other.Parts.State)
	assert.Contains(recs["broken"].Other.Lyrics.Reason, "parse failed")
	assert.Equal(model.Computed, recs["fine"].Other.Parts.State)
}

func TestRecordTimeout(t *testing.T) {
	p := newPipeline(t, Options{RecordTimeout: 20 * time.Millisecond},
		fakeExtractor{key: model.OtherParts, fn: func(ctx context.Context, in *Input) error {
			if in.Record.Title == "slow" {
				time.Sleep(500 * time.Millisecond)
			}
			return setParts(ctx, in)
		}},
		fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
	)
	recs := records("slow", "quick")
	summary, err := p.Run(context.Background(), recs, nil)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(model.Unavailable, recs["slow"].Other.Parts.State)
	assert.Equal("timed out", recs["slow"].Other.Lyrics.Reason)
	assert.Equal(model.Computed, recs["quick"].Other.Lyrics.State)
	assert.Equal([]string{"slow"}, summary.FailedTitles())
}

func TestParallelRunIsDeterministic(t *testing.T) {
	build := func(workers int) map[string]*model.ScoreRecord {
		p := newPipeline(t, Options{Workers: workers},
			fakeExtractor{key: model.OtherParts, fn: setParts},
			fakeExtractor{key: model.OtherMeasures, deps: []model.FeatureKey{model.OtherParts}, fn: setMeasures},
			fakeExtractor{key: model.OtherLyrics, fn: setLyrics},
		)
		var titles []string
		for i := 0; i < 50; i++ {
			titles = append(titles, fmt.Sprintf("score-%02d", i))
		}
		recs := records(titles...)
		_, err := p.Run(context.Background(), recs, nil)
		require.NoError(t, err)
		return recs
	}
	assert.Equal(t, build(1), build(8))
}

func TestCanceledRun(t *testing.T) {
	p := newPipeline(t, Options{}, fakeExtractor{key: model.OtherParts, fn: setParts})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, records("x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundleIsShared(t *testing.T) {
	var seen []string
	p := newPipeline(t, Options{Workers: 1},
		fakeExtractor{key: model.OtherLyrics, fn: func(ctx context.Context, in *Input) error {
			seen = append(seen, in.Bundle.Root)
			return setLyrics(ctx, in)
		}},
	)
	_, err := p.Run(context.Background(), records("a", "b"), &Bundle{Root: "/corpus"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/corpus", "/corpus"}, seen)
}
