// Package searchindex keeps a queryable SQLite copy of the catalog. It is
// derived data: every rebuild replaces its content entirely.
package searchindex

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jsphweid/scoredex/model"
)

//go:embed schema.sql
var schemaSQL string

// bump with schema.sql
const schemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var ErrNotBuilt = errors.New("search index has not been built")

type Index struct {
	db   *sql.DB
	path string
}

func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return &Index{db: db, path: path}, nil
}

func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func (ix *Index) Path() string {
	return ix.path
}

// Rebuild replaces the index content with cat in a single transaction.
func (ix *Index) Rebuild(ctx context.Context, cat *model.Catalog) error {
	return retryOnBusy(ctx, func() error { return ix.rebuild(ctx, cat) })
}

func (ix *Index) rebuild(ctx context.Context, cat *model.Catalog) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_info (schema_version, run_id, built_at) VALUES (?, ?, ?)`,
		schemaVersion, cat.RunID, cat.BuiltAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert index info: %w", err)
	}

	for _, title := range cat.Titles() {
		if err := insertRecord(ctx, tx, cat.Records[title]); err != nil {
			return fmt.Errorf("index %q: %w", title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, r *model.ScoreRecord) error {
	s := r.Summary()
	var valueTypes, parts sql.NullInt64
	if r.Rhythm != nil {
		if v, ok := r.Rhythm.Values.Get(); ok {
			valueTypes = sql.NullInt64{Int64: int64(len(v.Types)), Valid: true}
		}
	}
	var lyrics, composer sql.NullString
	if r.Other != nil {
		if n, ok := r.Other.Parts.Get(); ok {
			parts = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		if l, ok := r.Other.Lyrics.Get(); ok {
			lyrics = sql.NullString{String: l, Valid: true}
		}
	}
	if r.About != nil {
		if info, ok := r.About.Info.Get(); ok {
			composer = sql.NullString{String: info.Composer, Valid: true}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores (title, path, modified_at, key_name, meter, value_types, parts, lyrics, composer)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.FileInfo.Path, r.FileInfo.ModifiedAt.UTC().Format(time.RFC3339Nano),
		nullableString(s.Key), nullableString(s.Meter), valueTypes, parts, lyrics, composer,
	); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}

	for _, label := range s.Variants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO variants (title, label, path) VALUES (?, ?, ?)`,
			r.Title, label, r.FileInfo.Family[label],
		); err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
	}

	for _, key := range model.FeatureKeys {
		slot, ok := r.Peek(key)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO features (title, feature, state, reason) VALUES (?, ?, ?, ?)`,
			r.Title, string(key), slot.Status().String(), nullableString(slot.Why()),
		); err != nil {
			return fmt.Errorf("insert feature: %w", err)
		}
	}
	return nil
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
