package model

import (
	"time"

	"github.com/jsphweid/scoredex/util"
)

type ScoreSummary struct {
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	Variants   []string  `json:"variants"`
	Key        string    `json:"key,omitempty"`
	Meter      string    `json:"meter,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

type SearchResult struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

func (r *ScoreRecord) Summary() ScoreSummary {
	s := ScoreSummary{
		Title:      r.Title,
		Path:       r.FileInfo.Path,
		Variants:   util.GetKeys(r.FileInfo.Family),
		ModifiedAt: r.FileInfo.ModifiedAt,
	}
	if r.Pitch != nil {
		if key, ok := r.Pitch.KeySignature.Get(); ok {
			s.Key = key.Name
		}
	}
	if r.Rhythm != nil {
		if meter, ok := r.Rhythm.Meter.Get(); ok {
			s.Meter = meter
		}
	}
	return s
}
