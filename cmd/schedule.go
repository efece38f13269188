package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"citypulse/internal/app"
	"citypulse/internal/models"
)

var (
	scheduleCron    string
	scheduleEnqueue bool
	scheduleNow     bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Refresh analysis runs on a cron schedule",
	Long: `Runs the configured analysis periodically. With --enqueue each tick queues the run
for the worker instead of executing it in this process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		spec := scheduleCron
		if !cmd.Flags().Changed("cron") {
			if cfgSpec := appInstance.Config.Schedule.Cron; cfgSpec != "" {
				spec = cfgSpec
			}
		}
		req := requestFromFlags(cmd, appInstance)
		if err := appInstance.Pipeline.Validate(req); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tick := func() { scheduledRun(ctx, appInstance, req, scheduleEnqueue) }

		c := cron.New()
		if _, err := c.AddFunc(spec, tick); err != nil {
			return fmt.Errorf("invalid cron spec %q: %w", spec, err)
		}
		log.Infof("Scheduling analysis runs (%s) for %d cities", spec, len(req.Cities))
		c.Start()
		if scheduleNow {
			go tick()
		}

		<-ctx.Done()
		log.Info("Shutdown signal received. Waiting for running jobs...")
		<-c.Stop().Done()
		return nil
	},
}

func scheduledRun(ctx context.Context, appInstance *app.App, req models.RunRequest, enqueue bool) {
	if enqueue {
		run, err := appInstance.AnalysisService.Enqueue(ctx, req)
		if err != nil {
			log.Errorf("Scheduled enqueue failed: %v", err)
			return
		}
		log.Infof("Scheduled run %s queued", run.ID)
		return
	}
	run, err := appInstance.AnalysisService.Execute(ctx, req)
	if err != nil {
		log.Errorf("Scheduled run failed: %v", err)
		return
	}
	log.Infof("Scheduled run %s %s: items=%d mean=%.3f", run.ID, run.Status, len(run.Items), run.Aggregates.Summary.MeanSentiment)
}

func init() {
	addRunRequestFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "0 */6 * * *", "Five-field cron spec (default: schedule.cron)")
	scheduleCmd.Flags().BoolVar(&scheduleEnqueue, "enqueue", false, "Queue each run for the worker instead of running it here")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Also run once immediately")
	rootCmd.AddCommand(scheduleCmd)
}
