package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/tasks"
)

// AnalysisQueue is the asynq queue analysis runs are enqueued on.
const AnalysisQueue = "analysis"

// Ensure AsynqJobClient implements JobClient
var _ JobClient = (*AsynqJobClient)(nil)

type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(opt asynq.RedisClientOpt) *AsynqJobClient {
	return &AsynqJobClient{client: asynq.NewClient(opt)}
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// EnqueueRun schedules a queued run for the worker. The run row must already be saved.
func (jc *AsynqJobClient) EnqueueRun(ctx context.Context, runID uuid.UUID, req models.RunRequest, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	task, err := tasks.NewAnalysisRunTask(runID, req)
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(AnalysisQueue), asynq.TaskID(runID.String())}, opts...)
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.WithError(err).WithField("run_id", runID).Error("Failed to enqueue analysis run")
		return nil, fmt.Errorf("enqueue analysis run %s: %w", runID, err)
	}
	log.WithFields(log.Fields{"run_id": runID, "queue": info.Queue, "task_id": info.ID}).Debug("Enqueued analysis run")
	return info, nil
}
