package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/score"
	"github.com/jsphweid/scoredex/util"
)

// Extractor fills one feature of a record. Extract must only write the
// feature named by Key and may read the features named by DependsOn.
type Extractor interface {
	Key() model.FeatureKey
	DependsOn() []model.FeatureKey
	Extract(ctx context.Context, in *Input) error
}

// Bundle is read-only information about the corpus shared by all records.
type Bundle struct {
	Root      string
	Delimiter string
	Titles    []string
}

type Input struct {
	Record *model.ScoreRecord
	Score  *score.Score
	Bundle *Bundle
}

type Options struct {
	Workers int
	// zero disables the per-record budget
	RecordTimeout time.Duration
	Parser        score.Parser
}

type Failure struct {
	Title   string
	Feature model.FeatureKey
	Reason  string
}

type Summary struct {
	Records  int
	Failures []Failure
	Elapsed  time.Duration
}

// FailedTitles returns the distinct titles with at least one failure.
func (s Summary) FailedTitles() []string {
	titles := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		titles = append(titles, f.Title)
	}
	return util.Unique(titles)
}

type Pipeline struct {
	graph  *graph
	opts   Options
	logger *slog.Logger
}

func New(extractors []Extractor, opts Options, logger *slog.Logger) (*Pipeline, error) {
	g, err := newGraph(extractors)
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Parser == nil {
		opts.Parser = score.Default
	}
	return &Pipeline{graph: g, opts: opts, logger: logging.NewComponentLogger(logger, "pipeline")}, nil
}

// Keys lists the features in execution order.
func (p *Pipeline) Keys() []model.FeatureKey {
	res := make([]model.FeatureKey, len(p.graph.order))
	for i, ex := range p.graph.order {
		res[i] = ex.Key()
	}
	return res
}

// Run executes the extractor chain of every record. Each record is owned by
// one worker and updated in place once its chain completes. Per-record
// failures end up in the summary; only cancellation of ctx returns an error.
func (p *Pipeline) Run(ctx context.Context, records map[string]*model.ScoreRecord, bundle *Bundle) (Summary, error) {
	start := time.Now()
	if bundle == nil {
		bundle = &Bundle{}
	}

	titles := util.GetKeys(records)
	pool := newPool(p.opts.Workers, len(titles))
	pool.start(func(title string) {
		if ctx.Err() != nil {
			return
		}
		p.processRecord(ctx, records[title], bundle)
	})
	for _, title := range titles {
		pool.submit(title)
	}
	pool.stop()

	if err := ctx.Err(); err != nil {
		return Summary{}, fmt.Errorf("pipeline canceled: %w", err)
	}

	summary := Summary{Records: len(titles), Elapsed: time.Since(start)}
	for _, title := range titles {
		for _, key := range p.Keys() {
			slot, ok := records[title].Peek(key)
			if ok && slot.Status() == model.Unavailable {
				summary.Failures = append(summary.Failures, Failure{Title: title, Feature: key, Reason: slot.Why()})
			}
		}
	}
	sort.SliceStable(summary.Failures, func(i, j int) bool {
		a, b := summary.Failures[i], summary.Failures[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Feature < b.Feature
	})
	return summary, nil
}

func (p *Pipeline) processRecord(ctx context.Context, rec *model.ScoreRecord, bundle *Bundle) {
	logger := p.logger.With(logging.String(logging.FieldTitle, rec.Title))
	scratch := rec.Clone()

	rctx, cancel := ctx, context.CancelFunc(func() {})
	if p.opts.RecordTimeout > 0 {
		rctx, cancel = context.WithTimeout(ctx, p.opts.RecordTimeout)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.runChain(rctx, scratch, bundle, logger)
	}()

	select {
	case <-done:
		scratch.FileInfo.Release()
		*rec = *scratch
	case <-rctx.Done():
		if ctx.Err() != nil {
			return
		}
		logger.Warn("record exceeded extraction budget",
			logging.Event(logging.EventExtractorFailure), logging.Duration("budget", p.opts.RecordTimeout))
		p.markAll(rec, "timed out")
	}
}

func (p *Pipeline) runChain(ctx context.Context, rec *model.ScoreRecord, bundle *Bundle, logger *slog.Logger) {
	parsed := rec.FileInfo.Parsed()
	if parsed == nil {
		var err error
		parsed, err = p.parse(rec.FileInfo.Path)
		if err != nil {
			logger.Warn("skipping record, parse failed", logging.Event(logging.EventParseFailure), logging.Error(err))
			p.markAll(rec, fmt.Sprintf("parse failed: %v", err))
			return
		}
		rec.FileInfo.Attach(parsed)
	}

	in := &Input{Record: rec, Score: parsed, Bundle: bundle}
	for _, ex := range p.graph.order {
		key := ex.Key()
		slot := rec.Slot(key)
		if dep, blocked := blockedBy(rec, ex); blocked {
			slot.MarkUnavailable(fmt.Sprintf("dependency %s unavailable", dep))
			continue
		}
		if err := safeExtract(ctx, ex, in); err != nil {
			logger.Warn("extractor failed", logging.Event(logging.EventExtractorFailure),
				logging.String(logging.FieldFeature, string(key)), logging.Error(err))
			slot.MarkUnavailable(err.Error())
			continue
		}
		if slot.Status() == model.NotComputed {
			slot.MarkUnavailable("extractor produced no value")
		}
	}
}

func (p *Pipeline) parse(path string) (s *score.Score, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parser panicked: %v", score.ErrUnparsable, r)
		}
	}()
	return p.opts.Parser.Parse(path)
}

func (p *Pipeline) markAll(rec *model.ScoreRecord, reason string) {
	for _, ex := range p.graph.order {
		rec.Slot(ex.Key()).MarkUnavailable(reason)
	}
}

// blockedBy returns the first dependency that has no usable value.
func blockedBy(rec *model.ScoreRecord, ex Extractor) (model.FeatureKey, bool) {
	for _, dep := range ex.DependsOn() {
		slot, ok := rec.Peek(dep)
		if !ok {
			return dep, true
		}
		switch slot.Status() {
		case model.Computed, model.NotApplicable:
		default:
			return dep, true
		}
	}
	return "", false
}

func safeExtract(ctx context.Context, ex Extractor, in *Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ex.Extract(ctx, in)
}
