package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/logging"
	"github.com/jsphweid/scoredex/model"
	"github.com/jsphweid/scoredex/util"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

type catalogStats struct {
	records     int
	withFamily  int
	variants    int
	shadowed    int
	unavailable map[model.FeatureKey]int
	meters      map[string]int
}

func analyzeCatalog(c *model.Catalog) catalogStats {
	stats := catalogStats{
		records:     len(c.Records),
		shadowed:    len(c.Shadowed),
		unavailable: make(map[model.FeatureKey]int),
	}
	var meters []string
	for _, r := range c.Records {
		if n := len(r.FileInfo.Family); n > 0 {
			stats.withFamily++
			stats.variants += n
		}
		for _, key := range r.Unavailable() {
			stats.unavailable[key]++
		}
		if r.Rhythm != nil {
			if m, ok := r.Rhythm.Meter.Get(); ok {
				meters = append(meters, m)
			}
		}
	}
	stats.meters = util.Count(meters)
	return stats
}

// indexedUnavailable reads unavailable feature counts from the search index.
// It reports false when no index is configured or it cannot answer.
func (e *env) indexedUnavailable(ctx context.Context) (map[model.FeatureKey]int, bool) {
	ix, err := e.openIndex()
	if err != nil || ix == nil {
		return nil, false
	}
	defer ix.Close()
	counts, err := ix.UnavailableCounts(ctx)
	if err != nil {
		e.logger.Debug("search index counts unavailable", logging.Error(err))
		return nil, false
	}
	res := make(map[model.FeatureKey]int, len(counts))
	for k, n := range counts {
		res[model.FeatureKey(k)] = n
	}
	return res, true
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarizes the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, c, err := loadCatalog()
		if err != nil {
			return err
		}
		stats := analyzeCatalog(c)
		if counts, ok := e.indexedUnavailable(cmd.Context()); ok {
			stats.unavailable = counts
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "run %s built %s\n", c.RunID, c.BuiltAt.Format("2006-01-02 15:04:05 MST"))

		rows := [][]string{
			{"records", strconv.Itoa(stats.records)},
			{"records with variants", strconv.Itoa(stats.withFamily)},
			{"variant files", strconv.Itoa(stats.variants)},
			{"shadowed duplicates", strconv.Itoa(stats.shadowed)},
		}
		for _, m := range util.GetKeys(stats.meters) {
			rows = append(rows, []string{"meter " + m, strconv.Itoa(stats.meters[m])})
		}
		fmt.Fprintln(w, renderTable([]string{"catalog", ""}, rows, []columnAlignment{alignLeft, alignRight}))

		if len(stats.unavailable) == 0 {
			return nil
		}
		failed := make([][]string, 0, len(stats.unavailable))
		for _, k := range util.GetKeys(stats.unavailable) {
			failed = append(failed, []string{string(k), strconv.Itoa(stats.unavailable[k])})
		}
		fmt.Fprintln(w, renderTable([]string{"unavailable feature", "records"}, failed, []columnAlignment{alignLeft, alignRight}))
		fmt.Fprintln(w, "see 'scoredex show <title>' for reasons")
		return nil
	},
}
