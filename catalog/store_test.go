package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsphweid/scoredex/extract"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/score/scoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func sampleCatalog() *model.Catalog {
	modified := time.Unix(1650000000, 0).UTC()
	c := model.NewCatalog()
	c.RunID = "run-1"
	c.BuiltAt = modified
	rec := &model.ScoreRecord{
		Title: "lullaby",
		FileInfo: model.FileInfo{
			Path:       "/c/lullaby.xml",
			Family:     map[string]string{"Piano": "/c/lullaby - piano.xml"},
			CreatedAt:  modified,
			ModifiedAt: modified,
		},
		Pitch:  &model.PitchBlock{},
		Rhythm: &model.RhythmBlock{},
		Other:  &model.OtherBlock{},
	}
	rec.Pitch.KeySignature.Set(model.Key{Tonic: "G", Mode: "major", Fifths: 1, Name: "G major"})
	rec.Pitch.LetterNames.Set(model.Sequence{
		All:   map[string][]string{"Part 1": {"G", "B", "D"}},
		Types: map[string]int{"G": 1, "B": 1, "D": 1},
	})
	rec.Pitch.Range.Set(model.PartRanges{"Part 1": {Lowest: "G4", Highest: "D5", Semitones: 7, Interval: "P5"}})
	rec.Pitch.Intervals.MarkUnavailable("boom")
	rec.Rhythm.Meter.Set("triple")
	rec.Rhythm.Anacrusis.Set(1)
	rec.Other.Repeats.Set(map[string]int{"repeat sign": 2})
	rec.Other.Lyrics.Set("la la")
	c.Records[rec.Title] = rec
	c.Shadowed["/c/old/lullaby.mid"] = modified
	return c
}

func newStore(t *testing.T, generations int) *Store {
	dir := t.TempDir()
	return New(Options{
		Path:        filepath.Join(dir, "score_dictionary.gob"),
		MirrorPath:  filepath.Join(dir, "score_dictionary.txt"),
		Generations: generations,
	}, logging.NewNop())
}

func TestRoundTrip(t *testing.T) {
	s := newStore(t, 1)
	c := sampleCatalog()
	require.NoError(t, s.Save(c))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

// A MIDI file without clef or meter events and an unpitched score leave
// several features computed but empty.
func TestRoundTripOfExtractedRecords(t *testing.T) {
	dir := t.TempDir()

	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 62, 100))
	tr.Add(960, midi.NoteOff(0, 62))
	tr.Add(0, midi.NoteOn(0, 66, 100))
	tr.Add(960, midi.NoteOff(0, 66))
	tr.Close(0)
	song := smf.New()
	song.TimeFormat = smf.MetricTicks(960)
	require.NoError(t, song.Add(tr))
	midiPath := filepath.Join(dir, "reel.mid")
	require.NoError(t, song.WriteFile(midiPath))

	drums := scoretest.Piece{Parts: [][]string{{"x", "x", "rest", "x"}, {"x:half", "x:half"}}}
	drumsPath := scoretest.WriteFile(t, dir, "march.musicxml", drums.XML())

	modified := time.Unix(1650000000, 0).UTC()
	records := map[string]*model.ScoreRecord{
		"reel":  {Title: "reel", FileInfo: model.FileInfo{Path: midiPath, ModifiedAt: modified}},
		"march": {Title: "march", FileInfo: model.FileInfo{Path: drumsPath, ModifiedAt: modified}},
	}
	p, err := pipeline.New(extract.Default(nil), pipeline.Options{Workers: 1}, logging.NewNop())
	require.NoError(t, err)
	summary, err := p.Run(context.Background(), records, nil)
	require.NoError(t, err)
	require.Empty(t, summary.Failures)

	reel := records["reel"]
	require.Equal(t, model.Computed, reel.Pitch.Clefs.State)
	require.Equal(t, model.Computed, reel.Rhythm.TimeSignatures.State)
	require.Equal(t, model.NotApplicable, records["march"].Pitch.LetterNames.State)

	c := model.NewCatalog()
	c.RunID = "run-2"
	c.BuiltAt = modified
	c.Records = records

	s := newStore(t, 1)
	require.NoError(t, s.Save(c))
	loaded, err := s.Load()
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(c, loaded)
	assert.Equal(reel.Pitch.Clefs, loaded.Records["reel"].Pitch.Clefs)
	assert.Equal(reel.Rhythm.TimeSignatures, loaded.Records["reel"].Rhythm.TimeSignatures)
	assert.Equal(records["march"].Pitch.Solfege, loaded.Records["march"].Pitch.Solfege)
}

func TestLoadMissing(t *testing.T) {
	_, err := newStore(t, 1).Load()
	assert.ErrorIs(t, err, ErrCatalogMissing)
}

func TestLoadCorrupt(t *testing.T) {
	s := newStore(t, 1)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not gob"), 0o644))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrCatalogCorrupt)
}

func TestLoadRejectsOtherSchema(t *testing.T) {
	s := newStore(t, 1)
	require.NoError(t, s.Save(sampleCatalog()))
	require.NoError(t, writeAtomic(s.Path(), func(f *os.File) error {
		c := sampleCatalog()
		c.SchemaVersion = 99
		return encodeForTest(f, c)
	}))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrCatalogCorrupt)
}

func TestMirrorIsJSON(t *testing.T) {
	s := newStore(t, 1)
	require.NoError(t, s.Save(sampleCatalog()))

	dat, err := os.ReadFile(s.opts.MirrorPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(dat, &doc))
	assert.Contains(t, string(dat), `"state": "unavailable"`)
	assert.Contains(t, doc["records"], "lullaby")
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newStore(t, 1)
	require.NoError(t, s.Save(sampleCatalog()))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRotateKeepsGenerations(t *testing.T) {
	s := newStore(t, 2)
	assert.NoError(t, s.Rotate(), "rotating with no artifact is a no-op")

	for _, id := range []string{"one", "two", "three"} {
		c := sampleCatalog()
		c.RunID = id
		require.NoError(t, s.Rotate())
		require.NoError(t, s.Save(c))
	}

	backups := s.Backups()
	require.Len(t, backups, 2)

	runIDs := make([]string, 0, len(backups))
	for _, b := range backups {
		c, err := readCatalog(b)
		require.NoError(t, err)
		runIDs = append(runIDs, c.RunID)
	}
	assert.Equal(t, []string{"two", "one"}, runIDs)
}

func TestLoadFallsBackToBackupAfterFailedSave(t *testing.T) {
	s := newStore(t, 1)
	require.NoError(t, s.Save(sampleCatalog()))
	require.NoError(t, s.Rotate())

	_, err := os.Stat(s.Path())
	require.True(t, os.IsNotExist(err))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
}
