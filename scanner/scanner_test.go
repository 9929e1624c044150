package scanner

import (
	"path/filepath"
	"testing"

	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/score/scoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSeparatesVariantsAndSorts(t *testing.T) {
	root := t.TempDir()
	scoretest.WriteFile(t, root, "waltz.musicxml", "x")
	scoretest.WriteFile(t, root, "lullaby - piano.xml", "x")
	scoretest.WriteFile(t, root, "lullaby.xml", "x")
	scoretest.WriteFile(t, root, "folk/anthem.MID", "x")
	scoretest.WriteFile(t, root, "notes.txt", "x")
	scoretest.WriteFile(t, root, ".trash/old.xml", "x")

	corpus, err := Scan(Options{Root: root})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal([]string{
		filepath.Join(root, "folk/anthem.MID"),
		filepath.Join(root, "lullaby.xml"),
		filepath.Join(root, "waltz.musicxml"),
	}, model.IdentityPaths(corpus.Primaries))
	assert.Equal([]string{filepath.Join(root, "lullaby - piano.xml")}, model.IdentityPaths(corpus.Variants))
	assert.Len(corpus.Files(), 4)

	for _, id := range corpus.Primaries {
		assert.False(id.ModTime.IsZero())
		assert.False(id.CreatedAt.IsZero())
	}
}

func TestScanExtensionFilter(t *testing.T) {
	root := t.TempDir()
	scoretest.WriteFile(t, root, "a.mid", "x")
	scoretest.WriteFile(t, root, "b.xml", "x")

	corpus, err := Scan(Options{Root: root, Extensions: []string{".mid"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.mid")}, model.IdentityPaths(corpus.Primaries))
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(Options{Root: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, ErrCorpusUnavailable)

	file := scoretest.WriteFile(t, t.TempDir(), "a.xml", "x")
	_, err = Scan(Options{Root: file})
	assert.ErrorIs(t, err, ErrCorpusUnavailable)
}

func TestTitle(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("lullaby - piano", Title("/c/lullaby - piano.xml"))
	assert.True(IsVariant("/c/lullaby - piano.xml", " - "))
	assert.False(IsVariant("/c/lullaby-piano.xml", " - "))
}
