// Package librarian runs one synchronization pass over the corpus: scan,
// detect drift, group families, extract features and persist the catalog.
package librarian

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/constants"
	"github.com/jsphweid/scoredex/detect"
	"github.com/jsphweid/scoredex/family"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/scanner"
)

var (
	ErrBusy    = errors.New("another sync holds the catalog lock")
	ErrPersist = errors.New("persist failed")
)

// Indexer mirrors a persisted catalog somewhere queryable.
type Indexer interface {
	Rebuild(ctx context.Context, c *model.Catalog) error
}

type Options struct {
	Corpus   scanner.Options
	Catalog  catalog.Options
	Pipeline pipeline.Options
	// reuse features of records whose file did not change
	Incremental bool
	Extractors  []pipeline.Extractor
	// optional
	Index Indexer
}

type SyncOptions struct {
	// ignore the prior catalog: always rebuild and re-extract everything
	Full bool
	// stop after change detection
	DryRun bool
}

// CatalogState describes what Load found before the pass.
type CatalogState string

const (
	CatalogLoaded  CatalogState = "loaded"
	CatalogMissing CatalogState = "missing"
	CatalogCorrupt CatalogState = "corrupt"
)

type Report struct {
	RunID        string
	CatalogState CatalogState
	Verdict      detect.Verdict
	Rebuilt      bool
	Records      int
	Reused       int
	Extracted    int
	Orphans      []family.Orphan
	Conflicts    []family.Conflict
	Summary      pipeline.Summary
	// non-fatal
	IndexErr error
	Elapsed  time.Duration
}

type Librarian struct {
	opts     Options
	store    *catalog.Store
	pipe     *pipeline.Pipeline
	lockPath string
	logger   *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Librarian, error) {
	if opts.Catalog.Path == "" {
		return nil, errors.New("catalog path is required")
	}
	if opts.Corpus.Delimiter == "" {
		opts.Corpus.Delimiter = constants.VariantDelimiter
	}
	pipe, err := pipeline.New(opts.Extractors, opts.Pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return &Librarian{
		opts:     opts,
		store:    catalog.New(opts.Catalog, logger),
		pipe:     pipe,
		lockPath: opts.Catalog.Path + constants.LockSuffix,
		logger:   logging.NewComponentLogger(logger, "librarian"),
	}, nil
}

// Load returns the persisted catalog without syncing.
func (l *Librarian) Load() (*model.Catalog, error) {
	return l.store.Load()
}

// Status scans the corpus and reports drift without touching the catalog.
func (l *Librarian) Status(ctx context.Context) (Report, error) {
	return l.Sync(ctx, SyncOptions{DryRun: true})
}

// Sync runs one pass. Only an unavailable corpus, a busy lock, a catalog
// that cannot be read, cancellation, or a failed save return an error; in
// every such case the prior catalog is left readable.
func (l *Librarian) Sync(ctx context.Context, opts SyncOptions) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	logger := l.logger.With(logging.String(logging.FieldRunID, report.RunID))

	if !opts.DryRun {
		unlock, err := l.lock()
		if err != nil {
			return report, err
		}
		defer unlock()
	}

	corpus, err := scanner.Scan(l.opts.Corpus)
	if err != nil {
		logger.Error("corpus scan failed, catalog left untouched", logging.Error(err))
		return report, err
	}

	prev, err := l.store.Load()
	switch {
	case err == nil:
		report.CatalogState = CatalogLoaded
	case errors.Is(err, catalog.ErrCatalogMissing):
		report.CatalogState = CatalogMissing
		logger.Info("no catalog found, building from scratch", logging.String(logging.FieldPath, l.store.Path()))
	case errors.Is(err, catalog.ErrCatalogCorrupt):
		report.CatalogState = CatalogCorrupt
		logger.Warn("catalog unreadable, rebuilding", logging.Event(logging.EventCatalogCorrupt), logging.Error(err))
	default:
		return report, fmt.Errorf("load catalog: %w", err)
	}

	report.Verdict = detect.Detect(corpus.Primaries, prev)
	logger.Info("change detection finished", "verdict", report.Verdict.Kind.String(),
		"primaries", len(corpus.Primaries), "variants", len(corpus.Variants))
	if opts.DryRun || (!report.Verdict.Stale() && !opts.Full) {
		if prev != nil {
			report.Records = len(prev.Records)
		}
		report.Elapsed = time.Since(start)
		return report, nil
	}

	next, toExtract := l.build(corpus, prev, opts.Full, &report, logger)
	summary, err := l.pipe.Run(ctx, toExtract, &pipeline.Bundle{
		Root:      l.opts.Corpus.Root,
		Delimiter: l.opts.Corpus.Delimiter,
		Titles:    next.Titles(),
	})
	if err != nil {
		return report, err
	}
	report.Summary = summary

	if err := l.persist(next); err != nil {
		logger.Error("catalog not persisted", logging.Error(err))
		return report, err
	}
	report.Rebuilt = true

	if l.opts.Index != nil {
		if err := l.opts.Index.Rebuild(ctx, next); err != nil {
			report.IndexErr = err
			logger.Warn("search index refresh failed", logging.Error(err))
		}
	}

	report.Elapsed = time.Since(start)
	logger.Info("catalog rebuilt",
		logging.Int("records", report.Records),
		logging.Int("reused", report.Reused),
		logging.Int("extracted", report.Extracted),
		logging.Int("failures", len(summary.Failures)),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

// build groups the scanned files into a fresh catalog and returns the records
// that still need extraction.
func (l *Librarian) build(corpus scanner.Corpus, prev *model.Catalog, full bool, report *Report, logger *slog.Logger) (*model.Catalog, map[string]*model.ScoreRecord) {
	grouped := family.Group(corpus.Files(), l.opts.Corpus.Delimiter)
	for _, o := range grouped.Orphans {
		logger.Warn("variant has no standalone score, skipped", logging.Event(logging.EventOrphanVariant),
			logging.String(logging.FieldPath, o.Path), logging.String(logging.FieldTitle, o.Title))
	}
	for _, c := range grouped.Conflicts {
		event := logging.EventDuplicateTitle
		if c.Label != "" {
			event = logging.EventDuplicateVariant
		}
		logger.Warn("file shadowed by an earlier path", logging.Event(event),
			logging.String(logging.FieldTitle, c.Title), logging.String("kept", c.Kept), logging.String(logging.FieldPath, c.Path))
	}
	report.Orphans, report.Conflicts = grouped.Orphans, grouped.Conflicts

	next := model.NewCatalog()
	next.RunID = report.RunID
	next.BuiltAt = time.Now().UTC()
	next.Records = grouped.Records
	for _, f := range grouped.Shadowed {
		next.Shadowed[f.Path] = f.ModTime
	}

	keys := l.pipe.Keys()
	toExtract := make(map[string]*model.ScoreRecord, len(next.Records))
	for title, rec := range next.Records {
		if l.opts.Incremental && !full && prev != nil {
			if old, ok := prev.Records[title]; ok && reusable(old, rec, keys) {
				rec.CarryFeatures(old)
				report.Reused++
				continue
			}
		}
		toExtract[title] = rec
	}
	report.Records = len(next.Records)
	report.Extracted = len(toExtract)
	return next, toExtract
}

// reusable reports whether old holds exactly what extraction would produce
// for rec: same files, same modification time, every feature of the chain
// settled and none failed.
func reusable(old, rec *model.ScoreRecord, keys []model.FeatureKey) bool {
	if old.FileInfo.Path != rec.FileInfo.Path || !old.FileInfo.ModifiedAt.Equal(rec.FileInfo.ModifiedAt) {
		return false
	}
	if !maps.Equal(old.FileInfo.Family, rec.FileInfo.Family) {
		return false
	}
	want := make(map[model.FeatureKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for _, k := range model.FeatureKeys {
		slot, ok := old.Peek(k)
		settled := ok && slot.Status() != model.NotComputed
		if settled != want[k] {
			return false
		}
		if settled && slot.Status() == model.Unavailable {
			return false
		}
	}
	return true
}

// persist rotates the prior artifact out of the way, then writes next.
// A failed write leaves the rotated generation for Load to fall back on.
func (l *Librarian) persist(next *model.Catalog) error {
	if err := l.store.Rotate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := l.store.Save(next); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (l *Librarian) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}
	fl := flock.New(l.lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, l.lockPath)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			l.logger.Warn("failed to release catalog lock", logging.Error(err))
		}
	}, nil
}
