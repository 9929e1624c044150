package model

import (
	"encoding/json"
	"time"

	"github.com/jsphweid/scoredex/score"
)

type FeatureKey string

const (
	RhythmTimeSignatures FeatureKey = "rhythm.timeSignatures"
	RhythmMeter          FeatureKey = "rhythm.meter"
	RhythmValues         FeatureKey = "rhythm.values"
	RhythmAnacrusis      FeatureKey = "rhythm.anacrusis"
	RhythmTies           FeatureKey = "rhythm.ties"

	PitchKeySignature FeatureKey = "pitch.keySignature"
	PitchMode         FeatureKey = "pitch.mode"
	PitchClefs        FeatureKey = "pitch.clefs"
	PitchRange        FeatureKey = "pitch.range"
	PitchLetterNames  FeatureKey = "pitch.letterNames"
	PitchSolfege      FeatureKey = "pitch.solfege"
	PitchIntervals    FeatureKey = "pitch.intervals"

	OtherParts    FeatureKey = "other.parts"
	OtherMeasures FeatureKey = "other.measures"
	OtherRepeats  FeatureKey = "other.repeats"
	OtherLyrics   FeatureKey = "other.lyrics"
	OtherChords   FeatureKey = "other.chords"
	OtherSlurs    FeatureKey = "other.slurs"

	AboutInfoKey FeatureKey = "about"
)

// FeatureKeys lists every feature in block order.
var FeatureKeys = []FeatureKey{
	RhythmTimeSignatures, RhythmMeter, RhythmValues, RhythmAnacrusis, RhythmTies,
	PitchKeySignature, PitchMode, PitchClefs, PitchRange, PitchLetterNames, PitchSolfege, PitchIntervals,
	OtherParts, OtherMeasures, OtherRepeats, OtherLyrics, OtherChords, OtherSlurs,
	AboutInfoKey,
}

type ScoreRecord struct {
	Title    string       `json:"title"`
	FileInfo FileInfo     `json:"fileInfo"`
	Pitch    *PitchBlock  `json:"pitch,omitempty"`
	Rhythm   *RhythmBlock `json:"rhythm,omitempty"`
	Other    *OtherBlock  `json:"other,omitempty"`
	About    *AboutBlock  `json:"about,omitempty"`
}

type FileInfo struct {
	Path string `json:"path"`
	// variant label -> path
	Family     map[string]string `json:"family"`
	CreatedAt  time.Time         `json:"createdAt"`
	ModifiedAt time.Time         `json:"modifiedAt"`

	parsed *score.Score
}

// Attach hands parsed content to the record, which owns it from then on.
func (f *FileInfo) Attach(s *score.Score) {
	f.parsed = s
}

func (f *FileInfo) Parsed() *score.Score {
	return f.parsed
}

// Release drops the parsed content once extraction is done.
func (f *FileInfo) Release() {
	f.parsed = nil
}

// Paths returns the primary path followed by every family member path.
func (f *FileInfo) Paths() []string {
	res := []string{f.Path}
	for _, p := range f.Family {
		res = append(res, p)
	}
	return res
}

type PitchBlock struct {
	KeySignature Feature[Key]        `json:"keySignature"`
	Mode         Feature[string]     `json:"mode"`
	Clefs        Feature[[]string]   `json:"clefs"`
	Range        Feature[PartRanges] `json:"range"`
	LetterNames  Feature[Sequence]   `json:"letterNames"`
	Solfege      Feature[Sequence]   `json:"solfege"`
	Intervals    Feature[Sequence]   `json:"intervals"`
}

type RhythmBlock struct {
	TimeSignatures Feature[[]string]  `json:"timeSignatures"`
	Meter          Feature[string]    `json:"meter"`
	Values         Feature[Sequence]  `json:"values"`
	Anacrusis      Feature[float64]   `json:"anacrusis"`
	Ties           Feature[SpanStats] `json:"ties"`
}

type OtherBlock struct {
	Parts    Feature[int]            `json:"parts"`
	Measures Feature[int]            `json:"measures"`
	Repeats  Feature[map[string]int] `json:"repeats"`
	Lyrics   Feature[string]         `json:"lyrics"`
	Chords   Feature[Sequence]       `json:"chords"`
	Slurs    Feature[SpanStats]      `json:"slurs"`
}

type AboutBlock struct {
	Info Feature[AboutInfo] `json:"info"`
}

type Key struct {
	Tonic  string `json:"tonic"`
	Mode   string `json:"mode"`
	Fifths int    `json:"fifths"`
	Name   string `json:"name"`
}

// Sequence holds per-part values in order and the frequency of each value
// across the whole score.
type Sequence struct {
	All   map[string][]string `json:"all"`
	Types map[string]int      `json:"types"`
}

type PartRange struct {
	Lowest    string `json:"lowest"`
	Highest   string `json:"highest"`
	Semitones int    `json:"semitones"`
	Interval  string `json:"interval"`
}

// IsNone reports a part without pitch content.
func (r PartRange) IsNone() bool {
	return r.Lowest == ""
}

func (r PartRange) MarshalJSON() ([]byte, error) {
	if r.IsNone() {
		return []byte("null"), nil
	}
	type plain PartRange
	return json.Marshal(plain(r))
}

type PartRanges map[string]PartRange

type SpanStats struct {
	Number int `json:"number"`
	// distinct lengths in order of first appearance
	Lengths []int `json:"lengths"`
}

type AboutInfo struct {
	Composer string `json:"composer,omitempty"`
	Country  string `json:"country,omitempty"`
	Language string `json:"language,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Harmony  string `json:"harmony,omitempty"`
	Form     string `json:"form,omitempty"`
	Theme    string `json:"theme,omitempty"`
	// which file name matched in the metadata source
	Source string `json:"source,omitempty"`
}

// Slot returns the feature stored under key, creating its block if needed.
// It returns nil for unknown keys.
func (r *ScoreRecord) Slot(key FeatureKey) Slot {
	s, _ := r.slot(key, true)
	return s
}

// Peek returns the feature stored under key without creating blocks.
func (r *ScoreRecord) Peek(key FeatureKey) (Slot, bool) {
	return r.slot(key, false)
}

func (r *ScoreRecord) slot(key FeatureKey, create bool) (Slot, bool) {
	block := key.Block()
	if create {
		switch block {
		case "pitch":
			if r.Pitch == nil {
				r.Pitch = &PitchBlock{}
			}
		case "rhythm":
			if r.Rhythm == nil {
				r.Rhythm = &RhythmBlock{}
			}
		case "other":
			if r.Other == nil {
				r.Other = &OtherBlock{}
			}
		case "about":
			if r.About == nil {
				r.About = &AboutBlock{}
			}
		}
	}

	switch {
	case block == "pitch" && r.Pitch != nil:
		switch key {
		case PitchKeySignature:
			return &r.Pitch.KeySignature, true
		case PitchMode:
			return &r.Pitch.Mode, true
		case PitchClefs:
			return &r.Pitch.Clefs, true
		case PitchRange:
			return &r.Pitch.Range, true
		case PitchLetterNames:
			return &r.Pitch.LetterNames, true
		case PitchSolfege:
			return &r.Pitch.Solfege, true
		case PitchIntervals:
			return &r.Pitch.Intervals, true
		}
	case block == "rhythm" && r.Rhythm != nil:
		switch key {
		case RhythmTimeSignatures:
			return &r.Rhythm.TimeSignatures, true
		case RhythmMeter:
			return &r.Rhythm.Meter, true
		case RhythmValues:
			return &r.Rhythm.Values, true
		case RhythmAnacrusis:
			return &r.Rhythm.Anacrusis, true
		case RhythmTies:
			return &r.Rhythm.Ties, true
		}
	case block == "other" && r.Other != nil:
		switch key {
		case OtherParts:
			return &r.Other.Parts, true
		case OtherMeasures:
			return &r.Other.Measures, true
		case OtherRepeats:
			return &r.Other.Repeats, true
		case OtherLyrics:
			return &r.Other.Lyrics, true
		case OtherChords:
			return &r.Other.Chords, true
		case OtherSlurs:
			return &r.Other.Slurs, true
		}
	case block == "about" && r.About != nil:
		if key == AboutInfoKey {
			return &r.About.Info, true
		}
	}
	return nil, false
}

// Block is the feature block a key belongs to.
func (k FeatureKey) Block() string {
	for i := 0; i < len(k); i++ {
		if k[i] == '.' {
			return string(k[:i])
		}
	}
	return string(k)
}

// Clone copies the record and its feature blocks. Feature values are shared;
// extractors replace values rather than mutating them.
func (r *ScoreRecord) Clone() *ScoreRecord {
	c := *r
	if r.FileInfo.Family != nil {
		c.FileInfo.Family = make(map[string]string, len(r.FileInfo.Family))
		for k, v := range r.FileInfo.Family {
			c.FileInfo.Family[k] = v
		}
	}
	if r.Pitch != nil {
		p := *r.Pitch
		c.Pitch = &p
	}
	if r.Rhythm != nil {
		rh := *r.Rhythm
		c.Rhythm = &rh
	}
	if r.Other != nil {
		o := *r.Other
		c.Other = &o
	}
	if r.About != nil {
		a := *r.About
		c.About = &a
	}
	return &c
}

// CarryFeatures copies every feature block from prev.
func (r *ScoreRecord) CarryFeatures(prev *ScoreRecord) {
	c := prev.Clone()
	r.Pitch, r.Rhythm, r.Other, r.About = c.Pitch, c.Rhythm, c.Other, c.About
}

// Unavailable lists the features of the record marked unavailable.
func (r *ScoreRecord) Unavailable() []FeatureKey {
	var res []FeatureKey
	for _, key := range FeatureKeys {
		if s, ok := r.Peek(key); ok && s.Status() == Unavailable {
			res = append(res, key)
		}
	}
	return res
}
