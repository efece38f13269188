package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"citypulse/internal/clix"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analysis runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		page, err := clix.ParsePagination(cmd.Flags())
		if err != nil {
			return err
		}

		runs, err := appInstance.AnalysisService.List(cmd.Context(), page.Limit, page.Offset)
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}
		renderOverviews(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	historyCmd.Flags().Int("offset", 0, "Number of runs to skip")
	rootCmd.AddCommand(historyCmd)
}
