package metadata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jsphweid/scoredex/model"
)

var ErrMissingTitleColumn = errors.New("metadata csv has no title column")

// Table is an in-memory metadata table keyed by lower-cased file name.
type Table struct {
	entries map[string]model.AboutInfo
}

func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads a header row followed by one row per score. Only the title
// column is required; unknown columns are ignored.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read metadata header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	titleCol, ok := cols["title"]
	if !ok {
		return nil, ErrMissingTitleColumn
	}

	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t := &Table{entries: make(map[string]model.AboutInfo)}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata row: %w", err)
		}
		if titleCol >= len(row) || strings.TrimSpace(row[titleCol]) == "" {
			continue
		}
		t.entries[normalize(row[titleCol])] = model.AboutInfo{
			Composer: get(row, "composer"),
			Country:  get(row, "country"),
			Language: get(row, "language"),
			Genre:    get(row, "genre"),
			Harmony:  get(row, "harmony"),
			Form:     get(row, "form"),
			Theme:    get(row, "theme"),
		}
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) Lookup(_ context.Context, names []string) (model.AboutInfo, bool, error) {
	info, ok := first(names, t.entries)
	return info, ok, nil
}
