package searchindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jsphweid/scoredex/model"
)

const defaultSearchLimit = 50

// ByValueTypes lists titles whose rhythm uses exactly n distinct note and
// rest values.
func (ix *Index) ByValueTypes(ctx context.Context, n int) ([]string, error) {
	if err := ix.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	rows, err := ix.db.QueryContext(ctx,
		`SELECT title FROM scores WHERE value_types = ? ORDER BY title`, n)
	if err != nil {
		return nil, fmt.Errorf("query value types: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// Search matches q against titles, lyrics and composers, case-insensitively.
func (ix *Index) Search(ctx context.Context, q string, limit int) ([]model.SearchResult, error) {
	if err := ix.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	rows, err := ix.db.QueryContext(ctx,
		`SELECT title, path FROM scores
         WHERE lower(title) LIKE ? OR lower(IFNULL(lyrics, '')) LIKE ? OR lower(IFNULL(composer, '')) LIKE ?
         ORDER BY title LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	res := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.Title, &r.Path); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// UnavailableCounts counts unavailable features by feature key.
func (ix *Index) UnavailableCounts(ctx context.Context) (map[string]int, error) {
	if err := ix.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	rows, err := ix.db.QueryContext(ctx,
		`SELECT feature, COUNT(1) FROM features WHERE state = ? GROUP BY feature`,
		model.Unavailable.String())
	if err != nil {
		return nil, fmt.Errorf("count unavailable: %w", err)
	}
	defer rows.Close()

	res := make(map[string]int)
	for rows.Next() {
		var feature string
		var n int
		if err := rows.Scan(&feature, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		res[feature] = n
	}
	return res, rows.Err()
}

func (ix *Index) ensureBuilt(ctx context.Context) error {
	var version int
	err := ix.db.QueryRowContext(ctx, `SELECT schema_version FROM index_info LIMIT 1`).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "no such table") {
			return ErrNotBuilt
		}
		return fmt.Errorf("read index info: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: index has schema %d, expected %d", ErrNotBuilt, version, schemaVersion)
	}
	return nil
}
