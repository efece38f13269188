package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"citypulse/internal/app"
	"citypulse/internal/clix"
	"citypulse/internal/models"
)

var (
	runJSON      bool
	runSummaries bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a sentiment analysis and print the results",
	Long: `Retrieves posts and articles for the selected cities, scores and classifies each
item, stores the run, and prints the item table followed by the aggregate views.
Interrupting the command keeps whatever was scored so far.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		req := requestFromFlags(cmd, appInstance)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		run, err := appInstance.AnalysisService.Execute(ctx, req)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		color.New(color.Bold).Fprintf(out, "Run %s: %s to %s\n\n", run.ID,
			run.Window.Start.Format("2006-01-02"), run.Window.End.Format("2006-01-02"))
		renderItems(out, run.Items)
		renderAggregates(out, run.Aggregates)
		if runSummaries {
			printSummaries(ctx, appInstance, run)
		}
		renderWarnings(out, run.Warnings)
		return nil
	},
}

// requestFromFlags overlays the analysis flags on the configured defaults.
func requestFromFlags(cmd *cobra.Command, appInstance *app.App) models.RunRequest {
	req := appInstance.DefaultRequest()
	flags := cmd.Flags()
	req.Cities = clix.ParseList(flags, "cities", req.Cities)
	req.Pillars = clix.ParseList(flags, "pillars", req.Pillars)
	if flags.Changed("months") {
		req.TimeWindowMonths, _ = flags.GetInt("months")
	}
	if flags.Changed("cap") {
		req.ItemsPerCityCap, _ = flags.GetInt("cap")
	}
	return req
}

func addRunRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("cities", "", "Comma-separated city names (default: analysis.cities or the whole catalog)")
	cmd.Flags().String("pillars", "", "Comma-separated pillar names (default: analysis.pillars or all pillars)")
	cmd.Flags().Int("months", 0, "Time window in months, 1-120 (default: analysis.time_window_months)")
	cmd.Flags().Int("cap", 0, "Maximum items per city from each source; a city can return up to cap items per enabled source (default: analysis.items_per_city_cap)")
}

// printSummaries writes one blurb per city and source kind. Failures are logged and skipped.
func printSummaries(ctx context.Context, appInstance *app.App, run *models.Run) {
	if !appInstance.Config.Summarization.Enabled {
		log.Warn("Summaries requested but summarization is disabled in config")
		return
	}
	labels := map[models.SourceKind]string{models.SourceSocial: "social posts", models.SourceNews: "news headlines"}
	color.New(color.Bold).Println("\nSummaries")
	for _, city := range run.Request.Cities {
		for _, kind := range []models.SourceKind{models.SourceSocial, models.SourceNews} {
			var titles []string
			for _, it := range run.Items {
				if it.City == city && it.SourceKind == kind {
					titles = append(titles, it.Title)
				}
			}
			if len(titles) == 0 {
				continue
			}
			blurb, err := appInstance.SummaryService.Summarise(ctx, titles, labels[kind])
			if err != nil {
				log.Warnf("Summary for %s %s failed: %v", city, labels[kind], err)
				continue
			}
			fmt.Printf("  %s (%s): %s\n", city, labels[kind], blurb)
		}
	}
}

func init() {
	addRunRequestFlags(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run as JSON")
	runCmd.Flags().BoolVar(&runSummaries, "summaries", false, "Print a short blurb per city and source kind")
	rootCmd.AddCommand(runCmd)
}
