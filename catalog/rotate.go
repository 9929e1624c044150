package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

func (s *Store) backupPath(generation int) string {
	return filepath.Join(s.opts.BackupDir, filepath.Base(s.opts.Path)+"."+strconv.Itoa(generation))
}

// Backups lists existing backup generations, newest first.
func (s *Store) Backups() []string {
	var res []string
	for g := 1; g <= s.opts.Generations; g++ {
		p := s.backupPath(g)
		if _, err := os.Stat(p); err == nil {
			res = append(res, p)
		}
	}
	return res
}

// Rotate moves the current artifact into backup slot 1, shifting older
// generations down and dropping the oldest. It is a no-op when there is no
// current artifact.
func (s *Store) Rotate() error {
	if _, err := os.Stat(s.opts.Path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.MkdirAll(s.opts.BackupDir, 0o755); err != nil {
		return fmt.Errorf("ensure backup directory: %w", err)
	}

	oldest := s.backupPath(s.opts.Generations)
	if err := os.Remove(oldest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("drop oldest backup: %w", err)
	}
	for g := s.opts.Generations - 1; g >= 1; g-- {
		from := s.backupPath(g)
		if err := os.Rename(from, s.backupPath(g+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("shift backup %s: %w", from, err)
		}
	}
	if err := os.Rename(s.opts.Path, s.backupPath(1)); err != nil {
		return fmt.Errorf("rotate catalog: %w", err)
	}
	s.logger.Info("rotated catalog", "backup", s.backupPath(1))
	return nil
}
