package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/model"
)

var queryTypes int

func init() {
	valuesCmd.Flags().IntVar(&queryTypes, "types", 0, "number of distinct note and rest values")
	_ = valuesCmd.MarkFlagRequired("types")
	queryCmd.AddCommand(valuesCmd)
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Queries the catalog",
}

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Lists titles whose rhythm uses exactly --types distinct values",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		titles, err := e.titlesByValueTypes(cmd.Context(), queryTypes)
		if err != nil {
			return err
		}
		for _, t := range titles {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

// titlesByValueTypes asks the search index when one is configured and falls
// back to reading the catalog.
func (e *env) titlesByValueTypes(ctx context.Context, n int) ([]string, error) {
	ix, err := e.openIndex()
	if err != nil {
		return nil, err
	}
	if ix != nil {
		defer ix.Close()
		return ix.ByValueTypes(ctx, n)
	}
	c, err := catalog.New(e.catalogOptions(), e.logger).Load()
	if err != nil {
		return nil, err
	}
	return filterByValueTypes(c, n), nil
}

func filterByValueTypes(c *model.Catalog, n int) []string {
	var res []string
	for _, title := range c.Titles() {
		r := c.Records[title]
		if r.Rhythm == nil {
			continue
		}
		if v, ok := r.Rhythm.Values.Get(); ok && len(v.Types) == n {
			res = append(res, title)
		}
	}
	return res
}
