// Package config loads the scoredex TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jsphweid/scoredex/constants"
)

//go:embed sample_config.toml
var sampleConfig string

// Corpus describes where score files live and how variants are named.
type Corpus struct {
	Root             string   `toml:"root"`
	Extensions       []string `toml:"extensions"`
	VariantDelimiter string   `toml:"variant_delimiter"`
}

// Catalog locates the persisted artifact and its backups.
type Catalog struct {
	Path              string `toml:"path"`
	MirrorPath        string `toml:"mirror_path"`
	BackupDir         string `toml:"backup_dir"`
	BackupGenerations int    `toml:"backup_generations"`
}

type Pipeline struct {
	Workers              int  `toml:"workers"`
	RecordTimeoutSeconds int  `toml:"record_timeout_seconds"`
	Incremental          bool `toml:"incremental"`
}

// About selects the descriptive metadata source. An empty source disables
// the about block.
type About struct {
	Source           string `toml:"source"`
	CSVPath          string `toml:"csv_path"`
	DynamoDBTable    string `toml:"dynamodb_table"`
	DynamoDBRegion   string `toml:"dynamodb_region"`
	DynamoDBEndpoint string `toml:"dynamodb_endpoint"`
}

// Search locates the SQLite index. An empty path disables it.
type Search struct {
	IndexPath string `toml:"index_path"`
}

type Serve struct {
	Bind           string   `toml:"bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type Watch struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	QuietSeconds        int `toml:"quiet_seconds"`
}

type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

type Config struct {
	Corpus   Corpus   `toml:"corpus"`
	Catalog  Catalog  `toml:"catalog"`
	Pipeline Pipeline `toml:"pipeline"`
	About    About    `toml:"about"`
	Search   Search   `toml:"search"`
	Serve    Serve    `toml:"serve"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or the default location when path is
// empty. A missing file yields the defaults. Environment overrides are applied
// after decoding. It returns the config, the resolved path and whether the
// file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = constants.GetConfigPath()
	}
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(constants.GetCorpusDir()); v != "" {
		c.Corpus.Root = v
	}
	if v := strings.TrimSpace(constants.GetCatalogPath()); v != "" {
		c.Catalog.Path = v
	}
}

// RecordTimeout is the per-record extraction budget; zero means unlimited.
func (c *Config) RecordTimeout() time.Duration {
	return time.Duration(c.Pipeline.RecordTimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}

func (c *Config) QuietPeriod() time.Duration {
	return time.Duration(c.Watch.QuietSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
