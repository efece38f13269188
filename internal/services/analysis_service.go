package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/pipeline"
	"citypulse/internal/store"
)

// Runner executes one analysis. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) (*pipeline.Result, error)
	Validate(req models.RunRequest) error
}

var ErrNoJobClient = errors.New("background runs are not configured")

// AnalysisService owns the run lifecycle around the pipeline: it assigns IDs, applies the
// run timeout and records every run in the store. The pipeline itself never persists.
type AnalysisService struct {
	runner  Runner
	runs    store.RunStore
	jobs    store.JobClient
	timeout time.Duration
	now     func() time.Time
}

// NewAnalysisService accepts a nil jobs client; Enqueue then fails with ErrNoJobClient.
func NewAnalysisService(runner Runner, runs store.RunStore, jobs store.JobClient, timeout time.Duration) *AnalysisService {
	return &AnalysisService{runner: runner, runs: runs, jobs: jobs, timeout: timeout, now: time.Now}
}

// Execute runs the pipeline synchronously and stores the finished run. A failure to
// store is logged and the run is still returned. When the pipeline fails, the stored
// failed run is returned together with the error.
func (s *AnalysisService) Execute(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	if err := s.runner.Validate(req); err != nil {
		return nil, err
	}
	run := s.newRun(req, models.RunStatusRunning)
	if err := s.finish(ctx, run); err != nil {
		return run, fmt.Errorf("analysis run %s: %w", run.ID, err)
	}
	return run, nil
}

// Enqueue stores a queued run and hands it to the worker.
func (s *AnalysisService) Enqueue(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	if s.jobs == nil {
		return nil, ErrNoJobClient
	}
	if err := s.runner.Validate(req); err != nil {
		return nil, err
	}
	run := s.newRun(req, models.RunStatusQueued)
	if err := s.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save queued run: %w", err)
	}
	if _, err := s.jobs.EnqueueRun(ctx, run.ID, req); err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		s.save(ctx, run)
		return nil, err
	}
	log.Infof("Queued analysis run %s", run.ID)
	return run, nil
}

// Process executes a queued run. A run missing from the store is recreated from req.
func (s *AnalysisService) Process(ctx context.Context, runID uuid.UUID, req models.RunRequest) (*models.Run, error) {
	run, err := s.runs.GetRun(ctx, runID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Warnf("Run %s not found in store, recreating from task payload", runID)
		run = s.newRun(req, models.RunStatusQueued)
		run.ID = runID
	case err != nil:
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status.Finished() {
		log.Infof("Run %s already %s, skipping", runID, run.Status)
		return run, nil
	}

	run.Status = models.RunStatusRunning
	run.StartedAt = s.now().UTC()
	s.save(ctx, run)
	if err := s.finish(ctx, run); err != nil {
		return run, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}

func (s *AnalysisService) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	return s.runs.GetRun(ctx, id)
}

func (s *AnalysisService) List(ctx context.Context, limit, offset int) ([]models.RunOverview, error) {
	return s.runs.ListRuns(ctx, limit, offset)
}

func (s *AnalysisService) newRun(req models.RunRequest, status models.RunStatus) *models.Run {
	return &models.Run{
		ID:        uuid.New(),
		Status:    status,
		Request:   req,
		StartedAt: s.now().UTC(),
		Items:     []models.ScoredItem{},
		Warnings:  []models.Warning{},
	}
}

// finish runs the pipeline into run and stores it. The pipeline error, if any, is also
// recorded on the run.
func (s *AnalysisService) finish(ctx context.Context, run *models.Run) error {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.runner.Run(runCtx, run.Request)
	finished := s.now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		log.Warnf("Analysis run %s failed: %v", run.ID, err)
	} else {
		run.Status = models.RunStatusCompleted
		run.Window = res.Window
		run.Items = res.Items
		run.Warnings = res.Warnings
		run.Aggregates = res.Aggregates
		run.Cancelled = res.Cancelled
	}
	// The caller's context may be the one that expired; saving must not depend on it.
	s.save(context.WithoutCancel(ctx), run)
	return err
}

func (s *AnalysisService) save(ctx context.Context, run *models.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log.Errorf("Failed to save run %s: %v", run.ID, err)
	}
}
