package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"citypulse/internal/models"
	"citypulse/internal/report"
)

var (
	exportRunID    string
	exportOut      string
	exportResearch bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored run as a markdown report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		id, err := uuid.Parse(exportRunID)
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", exportRunID, err)
		}
		run, err := appInstance.AnalysisService.Get(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("load run %s: %w", id, err)
		}

		var research *models.Research
		if exportResearch {
			if appInstance.ResearchService == nil {
				return fmt.Errorf("--research needs research.enabled in config")
			}
			research, err = appInstance.ResearchService.Conduct(cmd.Context(), run.Request.Cities, run.Request.Pillars, run.Request.TimeWindowMonths, "")
			if err != nil {
				return err
			}
		}

		md, err := report.Markdown(run, research)
		if err != nil {
			return err
		}
		if exportOut == "" || exportOut == "-" {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		if err := os.WriteFile(exportOut, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		log.Infof("Wrote report for run %s to %s", id, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "ID of the stored run to export")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportResearch, "research", false, "Append a deep-research analysis for the run's selection")
	_ = exportCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(exportCmd)
}
