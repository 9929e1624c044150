package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jsphweid/scoredex/catalog"
	"github.com/jsphweid/scoredex/model"
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func loadCatalog() (*env, *model.Catalog, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, nil, err
	}
	c, err := catalog.New(e.catalogOptions(), e.logger).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run 'scoredex sync' first)", err)
	}
	return e, c, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists catalog titles",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := loadCatalog()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(c.Records))
		for _, title := range c.Titles() {
			s := c.Records[title].Summary()
			rows = append(rows, []string{s.Title, strconv.Itoa(len(s.Variants)), s.Key, s.Meter, s.Path})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"title", "variants", "key", "meter", "path"}, rows,
			[]columnAlignment{alignLeft, alignRight}))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <title>",
	Short: "Prints one catalog record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := loadCatalog()
		if err != nil {
			return err
		}
		rec, ok := c.Records[args[0]]
		if !ok {
			return fmt.Errorf("no record titled %q", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}
