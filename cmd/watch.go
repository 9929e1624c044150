package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/librarian"
	"github.com/jsphweid/scoredex/logging"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Polls the corpus and syncs once changes settle",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		lib, closeLib, err := e.newLibrarian()
		if err != nil {
			return err
		}
		defer closeLib()

		w := &watcher{
			lib:    lib,
			poll:   e.cfg.PollInterval(),
			quiet:  e.cfg.QuietPeriod(),
			out:    cmd.OutOrStdout(),
			logger: logging.NewComponentLogger(e.logger, "watch"),
		}
		return w.run(cmd.Context())
	},
}

type syncer interface {
	Sync(ctx context.Context, opts librarian.SyncOptions) (librarian.Report, error)
	Status(ctx context.Context) (librarian.Report, error)
}

// watcher polls for drift and syncs once the corpus has been quiet for a
// while. run returns only after any sync it started has finished.
type watcher struct {
	lib         syncer
	poll, quiet time.Duration
	out         io.Writer
	logger      *slog.Logger

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

func (w *watcher) run(ctx context.Context) error {
	debounced := debounce.New(w.quiet)
	syncNow := func() { w.sync(ctx) }

	syncNow()
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case <-ticker.C:
			report, err := w.lib.Status(ctx)
			if err != nil {
				w.logger.Warn("status check failed", logging.Error(err))
				continue
			}
			if report.Verdict.Stale() {
				w.logger.Debug("corpus changed", "verdict", report.Verdict.Kind.String())
				debounced(syncNow)
			}
		}
	}
}

// sync runs on the debounce timer goroutine as well as the watch loop.
func (w *watcher) sync(ctx context.Context) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.running.Add(1)
	w.mu.Unlock()
	defer w.running.Done()

	report, err := w.lib.Sync(ctx, librarian.SyncOptions{})
	switch {
	case errors.Is(err, librarian.ErrBusy):
		w.logger.Info("sync already running, skipped")
	case err != nil:
		w.logger.Error("sync failed", logging.Error(err))
	case report.Rebuilt:
		printReport(w.out, report)
	}
}

func (w *watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.running.Wait()
}
