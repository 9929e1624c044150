package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateAbout(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCorpus() error {
	if len(c.Corpus.Extensions) == 0 {
		return errors.New("corpus.extensions must list at least one extension")
	}
	if strings.TrimSpace(c.Corpus.VariantDelimiter) == "" {
		return errors.New("corpus.variant_delimiter must contain a visible character")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BackupGenerations < 0 || c.Catalog.BackupGenerations > maxBackupGenerations {
		return fmt.Errorf("catalog.backup_generations must be between 0 and %d", maxBackupGenerations)
	}
	if c.Catalog.MirrorPath == c.Catalog.Path {
		return errors.New("catalog.mirror_path must differ from catalog.path")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 0 {
		return errors.New("pipeline.workers must be zero (one per CPU) or positive")
	}
	if c.Pipeline.RecordTimeoutSeconds < 0 || c.Pipeline.RecordTimeoutSeconds > maxRecordTimeoutHours*3600 {
		return fmt.Errorf("pipeline.record_timeout_seconds must be between 0 and %d", maxRecordTimeoutHours*3600)
	}
	return nil
}

func (c *Config) validateAbout() error {
	switch c.About.Source {
	case "":
	case "csv":
		if c.About.CSVPath == "" {
			return errors.New("about.csv_path is required when about.source is csv")
		}
	case "dynamodb":
		if c.About.DynamoDBTable == "" {
			return errors.New("about.dynamodb_table is required when about.source is dynamodb")
		}
	default:
		return fmt.Errorf("about.source must be empty, csv or dynamodb (got %q)", c.About.Source)
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.PollIntervalSeconds <= 0 {
		return errors.New("watch.poll_interval_seconds must be positive")
	}
	if c.Watch.QuietSeconds < 0 {
		return errors.New("watch.quiet_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	return nil
}
