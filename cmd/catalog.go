package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var citiesCmd = &cobra.Command{
	Use:         "cities",
	Short:       "List the cities that can be analysed",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOnly: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		_, catalog, err := catalogsFromContext(cmd.Context())
		if err != nil {
			return err
		}
		table := newTable(cmd.OutOrStdout(), "City", "Search Keyword", "Flag")
		for _, c := range catalog.All() {
			table.Append([]string{c.Name, c.Keyword, c.Flag})
		}
		table.Render()
		return nil
	},
}

var pillarsCmd = &cobra.Command{
	Use:         "pillars",
	Short:       "List the evaluation pillars and their keywords",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOnly: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		tax, _, err := catalogsFromContext(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range tax.Pillars() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n", p.Name, strings.Join(p.Keywords, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
	rootCmd.AddCommand(pillarsCmd)
}
