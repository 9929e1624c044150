package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/librarian"
)

var (
	syncFull   bool
	syncDryRun bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "rebuild and re-extract every record even when nothing changed")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "only report whether the catalog is stale")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Brings the catalog in line with the corpus",
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

		report, err := lib.Sync(cmd.Context(), librarian.SyncOptions{Full: syncFull, DryRun: syncDryRun})
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reports whether the catalog is stale without changing it",
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

		report, err := lib.Status(cmd.Context())
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func printReport(w io.Writer, r librarian.Report) {
	fmt.Fprintf(w, "catalog: %s, verdict: %s\n", r.CatalogState, r.Verdict.Kind)
	if len(r.Verdict.Added) > 0 || len(r.Verdict.Removed) > 0 {
		fmt.Fprintf(w, "added: %d, removed: %d\n", len(r.Verdict.Added), len(r.Verdict.Removed))
	}
	if len(r.Verdict.Titles) > 0 {
		fmt.Fprintf(w, "modified: %s\n", strings.Join(r.Verdict.Titles, ", "))
	}
	if !r.Rebuilt {
		fmt.Fprintf(w, "records: %d (not rebuilt)\n", r.Records)
		return
	}

	rows := [][]string{
		{"records", strconv.Itoa(r.Records)},
		{"reused", strconv.Itoa(r.Reused)},
		{"extracted", strconv.Itoa(r.Extracted)},
		{"orphan variants", strconv.Itoa(len(r.Orphans))},
		{"conflicts", strconv.Itoa(len(r.Conflicts))},
		{"feature failures", strconv.Itoa(len(r.Summary.Failures))},
		{"elapsed", r.Elapsed.Round(1e6).String()},
	}
	fmt.Fprintln(w, renderTable([]string{"run " + r.RunID, ""}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(r.Summary.Failures) > 0 {
		failures := make([][]string, 0, len(r.Summary.Failures))
		for _, f := range r.Summary.Failures {
			failures = append(failures, []string{f.Title, string(f.Feature), f.Reason})
		}
		fmt.Fprintln(w, renderTable([]string{"title", "feature", "reason"}, failures, nil))
	}
	for _, o := range r.Orphans {
		fmt.Fprintf(w, "orphan variant %q has no score titled %q\n", o.Path, o.Title)
	}
	if r.IndexErr != nil {
		fmt.Fprintf(w, "search index not refreshed: %v\n", r.IndexErr)
	}
}
