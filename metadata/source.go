// Package metadata looks up descriptive information about a score (composer,
// origin, genre) by file name in an external table.
package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jsphweid/scoredex/model"
)

// Source is satisfied by every metadata backend. names are tried in order.
type Source interface {
	Lookup(ctx context.Context, names []string) (model.AboutInfo, bool, error)
}

type Kind string

const (
	KindNone     Kind = ""
	KindCSV      Kind = "csv"
	KindDynamoDB Kind = "dynamodb"
)

type Options struct {
	Kind Kind
	// csv
	Path string
	// dynamodb
	Table    string
	Region   string
	Endpoint string
}

// Open returns the source described by opts, or nil when no source is
// configured.
func Open(opts Options) (Source, error) {
	switch opts.Kind {
	case KindNone:
		return nil, nil
	case KindCSV:
		t, err := LoadCSV(opts.Path)
		if err != nil {
			return nil, err
		}
		return t, nil
	case KindDynamoDB:
		d, err := NewDynamo(DynamoOptions{Table: opts.Table, Region: opts.Region, Endpoint: opts.Endpoint})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown metadata source %q", opts.Kind)
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// first returns the entry for the earliest name that has one.
func first(names []string, entries map[string]model.AboutInfo) (model.AboutInfo, bool) {
	for _, name := range names {
		if info, ok := entries[normalize(name)]; ok {
			info.Source = name
			return info, true
		}
	}
	return model.AboutInfo{}, false
}
