package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jsphweid/scoredex/constants"
)

func (c *Config) normalize() error {
	if err := c.normalizeCorpus(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeAbout(); err != nil {
		return err
	}
	var err error
	if c.Search.IndexPath, err = expandPath(strings.TrimSpace(c.Search.IndexPath)); err != nil {
		return fmt.Errorf("search.index_path: %w", err)
	}
	c.Serve.Bind = strings.TrimSpace(c.Serve.Bind)
	if c.Serve.Bind == "" {
		c.Serve.Bind = defaultBind
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeCorpus() error {
	var err error
	if c.Corpus.Root, err = expandPath(strings.TrimSpace(c.Corpus.Root)); err != nil {
		return fmt.Errorf("corpus.root: %w", err)
	}
	if len(c.Corpus.Extensions) == 0 {
		c.Corpus.Extensions = append([]string(nil), constants.DefaultExtensions...)
	}
	exts := make([]string, 0, len(c.Corpus.Extensions))
	for _, ext := range c.Corpus.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Corpus.Extensions = exts
	if c.Corpus.VariantDelimiter == "" {
		c.Corpus.VariantDelimiter = constants.VariantDelimiter
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = defaultDataDir + "/" + constants.CatalogFilename
	}
	if c.Catalog.Path, err = expandPath(strings.TrimSpace(c.Catalog.Path)); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	dir := filepath.Dir(c.Catalog.Path)
	if strings.TrimSpace(c.Catalog.MirrorPath) == "" {
		c.Catalog.MirrorPath = filepath.Join(dir, constants.MirrorFilename)
	}
	if c.Catalog.MirrorPath, err = expandPath(c.Catalog.MirrorPath); err != nil {
		return fmt.Errorf("catalog.mirror_path: %w", err)
	}
	if strings.TrimSpace(c.Catalog.BackupDir) == "" {
		c.Catalog.BackupDir = dir
	}
	if c.Catalog.BackupDir, err = expandPath(c.Catalog.BackupDir); err != nil {
		return fmt.Errorf("catalog.backup_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAbout() error {
	c.About.Source = strings.ToLower(strings.TrimSpace(c.About.Source))
	var err error
	if c.About.CSVPath, err = expandPath(strings.TrimSpace(c.About.CSVPath)); err != nil {
		return fmt.Errorf("about.csv_path: %w", err)
	}
	c.About.DynamoDBTable = strings.TrimSpace(c.About.DynamoDBTable)
	c.About.DynamoDBRegion = strings.TrimSpace(c.About.DynamoDBRegion)
	c.About.DynamoDBEndpoint = strings.TrimSpace(c.About.DynamoDBEndpoint)
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
