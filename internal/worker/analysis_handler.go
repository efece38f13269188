package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/tasks"
)

// RunProcessor executes a queued run. *services.AnalysisService satisfies it.
type RunProcessor interface {
	Process(ctx context.Context, runID uuid.UUID, req models.RunRequest) (*models.Run, error)
}

// AnalysisDeps holds dependencies for the analysis run handler.
type AnalysisDeps struct {
	Processor RunProcessor
}

// HandleAnalysisRun returns the asynq handler for tasks.TypeAnalysisRun. Bad payloads and
// configuration errors are not retried.
func HandleAnalysisRun(deps AnalysisDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		p, err := tasks.ParseAnalysisRunPayload(t.Payload())
		if err != nil {
			log.Errorf("Dropping analysis task with bad payload: %v", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger := log.WithField("run_id", p.RunID)
		logger.Info("Processing analysis run")

		run, err := deps.Processor.Process(ctx, p.RunID, p.Request)
		if err != nil {
			if errors.Is(err, models.ErrConfiguration) {
				logger.Warnf("Analysis run rejected: %v", err)
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			logger.Errorf("Analysis run failed: %v", err)
			return err
		}
		logger.WithFields(log.Fields{
			"status":    run.Status,
			"items":     len(run.Items),
			"warnings":  len(run.Warnings),
			"cancelled": run.Cancelled,
		}).Info("Analysis run processed")
		return nil
	}
}

// RegisterHandlers wires every task type the worker serves.
func RegisterHandlers(mux *asynq.ServeMux, deps AnalysisDeps) {
	log.Infof("Registering analysis run handler (%s)", tasks.TypeAnalysisRun)
	mux.HandleFunc(tasks.TypeAnalysisRun, HandleAnalysisRun(deps))
}
