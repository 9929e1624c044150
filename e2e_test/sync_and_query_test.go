//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/jsphweid/scoredex/cmd"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/score/scoretest"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	contents := `
[corpus]
root = "` + filepath.Join(dir, "corpus") + `"

[catalog]
path = "` + filepath.Join(dir, "data", "score_dictionary.gob") + `"

[search]
index_path = "` + filepath.Join(dir, "data", "scores.db") + `"

[about]
source = "csv"
csv_path = "` + filepath.Join(dir, "metadata.csv") + `"

[logging]
level = "error"
`
	path := filepath.Join(dir, "scoredex.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func writeMidi(t *testing.T, path string) {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, smf.MetaMeter(3, 4))
	for _, key := range []uint8{60, 62, 64} {
		tr.Add(0, midi.NoteOn(0, key, 100))
		tr.Add(960, midi.NoteOff(0, key))
	}
	tr.Close(0)
	require.NoError(t, s.Add(tr))
	require.NoError(t, s.WriteFile(path))
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), args, &out))
	return out.String()
}

func TestSyncQueryAndShow(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	corpus := filepath.Join(dir, "corpus")
	scoretest.WriteFile(t, corpus, "lullaby.musicxml", scoretest.Melody("E4", "G4", "E4", "C4").XML())
	scoretest.WriteFile(t, corpus, "lullaby - piano.musicxml", scoretest.Melody("C3:whole").XML())
	scoretest.WriteFile(t, corpus, "solo - duet.musicxml", scoretest.Melody("C4").XML())
	scoretest.WriteFile(t, dir, "metadata.csv", "title,composer\nlullaby,Brahms\n")
	writeMidi(t, filepath.Join(corpus, "minuet.mid"))

	out := run(t, "--config", cfg, "sync")
	assert := assert.New(t)
	assert.Contains(out, "catalog: missing")
	assert.Contains(out, "orphan variant")

	out = run(t, "--config", cfg, "status")
	assert.Contains(out, "verdict: unchanged")

	out = run(t, "--config", cfg, "show", "lullaby")
	var rec model.ScoreRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(map[string]string{"Piano": filepath.Join(corpus, "lullaby - piano.musicxml")}, rec.FileInfo.Family)
	assert.Equal("Brahms", rec.About.Info.Value.Composer)
	assert.Equal([]string{"mi", "sol", "mi", "do"}, rec.Pitch.Solfege.Value.All["Part 1"])

	out = run(t, "--config", cfg, "show", "minuet")
	rec = model.ScoreRecord{}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal("triple", rec.Rhythm.Meter.Value)
	assert.Equal(model.NotApplicable, rec.About.Info.State)

	// both pieces use quarter notes only
	out = run(t, "--config", cfg, "query", "values", "--types", "1")
	assert.Contains(out, "lullaby\n")
	assert.Contains(out, "minuet\n")
}
