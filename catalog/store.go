package catalog

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jsphweid/scoredex/constants"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
)

var (
	ErrCatalogMissing = errors.New("catalog missing")
	ErrCatalogCorrupt = errors.New("catalog corrupt")
)

type Options struct {
	Path string
	// human readable copy, never read back; empty disables it
	MirrorPath string
	// where rotated generations go; defaults to the directory of Path
	BackupDir   string
	Generations int
}

// Store persists the catalog snapshot as a gob file.
type Store struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Store {
	if opts.BackupDir == "" {
		opts.BackupDir = filepath.Dir(opts.Path)
	}
	if opts.Generations < 1 {
		opts.Generations = 1
	}
	return &Store{opts: opts, logger: logging.NewComponentLogger(logger, "catalog")}
}

func (s *Store) Path() string {
	return s.opts.Path
}

// Load reads the current snapshot. When the primary artifact is missing the
// newest backup generation is used instead.
func (s *Store) Load() (*model.Catalog, error) {
	c, err := readCatalog(s.opts.Path)
	if err == nil || !errors.Is(err, ErrCatalogMissing) {
		return c, err
	}
	for _, backup := range s.Backups() {
		c, berr := readCatalog(backup)
		if berr != nil {
			continue
		}
		s.logger.Warn("catalog artifact missing, using backup", logging.String(logging.FieldPath, backup))
		return c, nil
	}
	return nil, err
}

func readCatalog(path string) (*model.Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var c model.Catalog
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCatalogCorrupt, path, err)
	}
	if c.SchemaVersion != constants.SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema version %d, want %d", ErrCatalogCorrupt, path, c.SchemaVersion, constants.SchemaVersion)
	}
	if c.Records == nil {
		c.Records = make(map[string]*model.ScoreRecord)
	}
	if c.Shadowed == nil {
		c.Shadowed = make(map[string]time.Time)
	}
	return &c, nil
}

// Save writes the snapshot to a temporary file and renames it over the
// artifact, so readers see either the old or the new snapshot.
func (s *Store) Save(c *model.Catalog) error {
	c.SchemaVersion = constants.SchemaVersion
	if err := writeAtomic(s.opts.Path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		if err := gob.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encode catalog: %w", err)
		}
		return w.Flush()
	}); err != nil {
		return err
	}

	if s.opts.MirrorPath != "" {
		if err := s.writeMirror(c); err != nil {
			s.logger.Warn("failed to write catalog mirror", logging.String(logging.FieldPath, s.opts.MirrorPath), logging.Error(err))
		}
	}
	return nil
}

func (s *Store) writeMirror(c *model.Catalog) error {
	return writeAtomic(s.opts.MirrorPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
}

func writeAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure catalog directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := write(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
