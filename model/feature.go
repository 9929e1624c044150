package model

import "fmt"

// State tells apart the ways a feature can lack a value.
type State uint8

const (
	// NotComputed is the zero state: the extractor has not run.
	NotComputed State = iota
	Computed
	// NotApplicable means the score has no content the feature describes,
	// e.g. pitch features of an unpitched score.
	NotApplicable
	// Unavailable means analysis failed; Reason says why.
	Unavailable
)

var stateNames = [...]string{"not_computed", "computed", "not_applicable", "unavailable"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown feature state %q", text)
}

type Feature[T any] struct {
	State  State  `json:"state"`
	Value  T      `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (f *Feature[T]) Set(v T) {
	f.State, f.Value, f.Reason = Computed, v, ""
}

// SetNotApplicable keeps v so callers can record which parts were considered.
func (f *Feature[T]) SetNotApplicable(v T, reason string) {
	f.State, f.Value, f.Reason = NotApplicable, v, reason
}

func (f *Feature[T]) MarkUnavailable(reason string) {
	var zero T
	f.State, f.Value, f.Reason = Unavailable, zero, reason
}

func (f *Feature[T]) Status() State {
	return f.State
}

func (f *Feature[T]) Why() string {
	return f.Reason
}

// Get returns the value when it was computed.
func (f Feature[T]) Get() (T, bool) {
	return f.Value, f.State == Computed
}

// Slot is the type-erased view of a feature used by the pipeline.
type Slot interface {
	Status() State
	Why() string
	MarkUnavailable(reason string)
}
