package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"citypulse/internal/clix"
	"citypulse/internal/report"
)

var promptCmd = &cobra.Command{
	Use:         "prompt",
	Short:       "Print the deep-research prompt for a selection",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{configOnly: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromContext(cmd.Context())
		if err != nil {
			return err
		}
		tax, catalog, err := catalogsFromContext(cmd.Context())
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		cities, err := catalog.Resolve(clix.ParseList(flags, "cities", catalog.Names()))
		if err != nil {
			return err
		}
		names := make([]string, len(cities))
		for i, c := range cities {
			names[i] = c.Name
		}
		pillars, err := tax.Resolve(clix.ParseList(flags, "pillars", tax.Names()))
		if err != nil {
			return err
		}
		months := cfg.Analysis.TimeWindowMonths
		if flags.Changed("months") {
			months, _ = flags.GetInt("months")
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.ResearchPrompt(names, pillars, months, time.Now()))
		return nil
	},
}

func init() {
	promptCmd.Flags().String("cities", "", "Comma-separated city names (default: the whole catalog)")
	promptCmd.Flags().String("pillars", "", "Comma-separated pillar names (default: all pillars)")
	promptCmd.Flags().Int("months", 0, "Research period in months (default: analysis.time_window_months)")
	rootCmd.AddCommand(promptCmd)
}
