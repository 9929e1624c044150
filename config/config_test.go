package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsphweid/scoredex/config"
	"github.com/jsphweid/scoredex/constants"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(constants.EnvConfig, "")
	t.Setenv(constants.EnvCorpus, "")
	t.Setenv(constants.EnvCatalog, "")

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)

	assert := assert.New(t)
	assert.False(exists)
	assert.Equal(filepath.Join(home, ".config", "scoredex", "config.toml"), resolved)
	dataDir := filepath.Join(home, ".local", "share", "scoredex")
	assert.Equal(filepath.Join(dataDir, constants.CatalogFilename), cfg.Catalog.Path)
	assert.Equal(filepath.Join(dataDir, constants.MirrorFilename), cfg.Catalog.MirrorPath)
	assert.Equal(dataDir, cfg.Catalog.BackupDir)
	assert.Equal(1, cfg.Catalog.BackupGenerations)
	assert.True(cfg.Pipeline.Incremental)
	assert.Equal(constants.DefaultExtensions, cfg.Corpus.Extensions)
	assert.Empty(cfg.Search.IndexPath)
	assert.Equal("console", cfg.Logging.Format)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoredex.toml")
	contents := `
[corpus]
root = "` + filepath.Join(dir, "from-file") + `"
extensions = ["MusicXML", ".MID"]

[pipeline]
workers = 3
incremental = false

[logging]
level = "DEBUG"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	t.Setenv(constants.EnvCorpus, filepath.Join(dir, "from-env"))
	t.Setenv(constants.EnvCatalog, filepath.Join(dir, "cat", "c.gob"))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.True(exists)
	assert.Equal(filepath.Join(dir, "from-env"), cfg.Corpus.Root)
	assert.Equal([]string{".musicxml", ".mid"}, cfg.Corpus.Extensions)
	assert.Equal(filepath.Join(dir, "cat", "c.gob"), cfg.Catalog.Path)
	assert.Equal(filepath.Join(dir, "cat", constants.MirrorFilename), cfg.Catalog.MirrorPath)
	assert.Equal(3, cfg.Pipeline.Workers)
	assert.False(cfg.Pipeline.Incremental)
	assert.Equal("debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]func(c *config.Config){
		"about source":   func(c *config.Config) { c.About.Source = "ftp" },
		"csv path":       func(c *config.Config) { c.About.Source = "csv" },
		"dynamodb table": func(c *config.Config) { c.About.Source = "dynamodb" },
		"backups":        func(c *config.Config) { c.Catalog.BackupGenerations = -1 },
		"workers":        func(c *config.Config) { c.Pipeline.Workers = -2 },
		"poll":           func(c *config.Config) { c.Watch.PollIntervalSeconds = 0 },
		"log format":     func(c *config.Config) { c.Logging.Format = "xml" },
		"extensions":     func(c *config.Config) { c.Corpus.Extensions = nil },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Catalog.MirrorPath = "/tmp/mirror.txt"
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUnknownKeysAreRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[corpus]\nrooot = \"/x\"\n"), 0o644))
	_, _, _, err := config.Load(path)
	assert.Error(t, err)
}

func TestSampleConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, toml.Unmarshal(data, &cfg))
	assert.Equal(t, " - ", cfg.Corpus.VariantDelimiter)
	assert.Equal(t, 5, cfg.Watch.PollIntervalSeconds)

	t.Setenv("HOME", t.TempDir())
	_, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
}
