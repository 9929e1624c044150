package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/config"
	"github.com/jsphweid/scoredex/extract"
	"github.com/jsphweid/scoredex/librarian"
	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/metadata"
	"github.com/jsphweid/scoredex/pipeline"
	"github.com/jsphweid/scoredex/scanner"
	"github.com/jsphweid/scoredex/searchindex"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:           "scoredex",
	Short:         "Keeps a feature catalog of a score collection in sync",
	Long:          `scoredex scans a folder of MusicXML and MIDI scores, groups arrangements of the same piece into families and records pitch, rhythm and structural features of each piece in a catalog.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file path")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

// Run executes the command line in args, writing command output to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	return rootCmd.ExecuteContext(ctx)
}

// env is what every command needs once the configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, _, _, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, File: cfg.Logging.File})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) catalogOptions() catalog.Options {
	return catalog.Options{
		Path:        e.cfg.Catalog.Path,
		MirrorPath:  e.cfg.Catalog.MirrorPath,
		BackupDir:   e.cfg.Catalog.BackupDir,
		Generations: e.cfg.Catalog.BackupGenerations,
	}
}

// openIndex returns nil when no index path is configured. Callers close it.
func (e *env) openIndex() (*searchindex.Index, error) {
	if e.cfg.Search.IndexPath == "" {
		return nil, nil
	}
	return searchindex.Open(e.cfg.Search.IndexPath)
}

// newLibrarian wires the engine. The returned close func releases the
// search index.
func (e *env) newLibrarian() (*librarian.Librarian, func(), error) {
	about, err := metadata.Open(metadata.Options{
		Kind:     metadata.Kind(e.cfg.About.Source),
		Path:     e.cfg.About.CSVPath,
		Table:    e.cfg.About.DynamoDBTable,
		Region:   e.cfg.About.DynamoDBRegion,
		Endpoint: e.cfg.About.DynamoDBEndpoint,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("metadata source: %w", err)
	}

	ix, err := e.openIndex()
	if err != nil {
		return nil, nil, fmt.Errorf("search index: %w", err)
	}
	opts := librarian.Options{
		Corpus: scanner.Options{
			Root:       e.cfg.Corpus.Root,
			Extensions: e.cfg.Corpus.Extensions,
			Delimiter:  e.cfg.Corpus.VariantDelimiter,
		},
		Catalog: e.catalogOptions(),
		Pipeline: pipeline.Options{
			Workers:       e.cfg.Pipeline.Workers,
			RecordTimeout: e.cfg.RecordTimeout(),
		},
		Incremental: e.cfg.Pipeline.Incremental,
		Extractors:  extract.Default(about),
	}
	if ix != nil {
		opts.Index = ix
	}

	lib, err := librarian.New(opts, e.logger)
	if err != nil {
		_ = ix.Close()
		return nil, nil, err
	}
	return lib, func() { _ = ix.Close() }, nil
}
