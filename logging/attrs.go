package logging

import (
	"context"
	"log/slog"
	"time"
)

const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldRunID     = "run_id"
	FieldTitle     = "title"
	FieldFeature   = "feature"
	FieldPath      = "path"
)

// event_type values
const (
	EventOrphanVariant    = "orphan_variant"
	EventDuplicateTitle   = "duplicate_title"
	EventDuplicateVariant = "duplicate_variant"
	EventExtractorFailure = "extractor_failure"
	EventParseFailure     = "parse_failure"
	EventCatalogCorrupt   = "catalog_corrupt"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

func Event(kind string) Attr { return slog.String(FieldEventType, kind) }

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return args
}

// NoopHandler discards every record.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h NoopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h NoopHandler) WithGroup(string) slog.Handler           { return h }

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}
