package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"citypulse/internal/models"
	"citypulse/internal/tasks"
)

type mockProcessor struct{ mock.Mock }

func (m *mockProcessor) Process(ctx context.Context, runID uuid.UUID, req models.RunRequest) (*models.Run, error) {
	args := m.Called(ctx, runID, req)
	run, _ := args.Get(0).(*models.Run)
	return run, args.Error(1)
}

func TestHandleAnalysisRun(t *testing.T) {
	id := uuid.New()
	req := models.RunRequest{Cities: []string{"Bilbao"}, Pillars: []string{"Replicability"}, TimeWindowMonths: 12}
	task, err := tasks.NewAnalysisRunTask(id, req)
	require.NoError(t, err)

	p := new(mockProcessor)
	p.On("Process", mock.Anything, id, req).Return(&models.Run{ID: id, Status: models.RunStatusCompleted}, nil)

	require.NoError(t, HandleAnalysisRun(AnalysisDeps{Processor: p})(context.Background(), task))
	p.AssertExpectations(t)
}

func TestHandleAnalysisRunSkipsRetryOnBadInput(t *testing.T) {
	p := new(mockProcessor)
	h := HandleAnalysisRun(AnalysisDeps{Processor: p})

	err := h(context.Background(), asynq.NewTask(tasks.TypeAnalysisRun, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	id := uuid.New()
	task, err := tasks.NewAnalysisRunTask(id, models.RunRequest{})
	require.NoError(t, err)
	p.On("Process", mock.Anything, id, models.RunRequest{}).Return(nil, models.NewConfigurationError("cities", "at least one city is required"))
	assert.ErrorIs(t, h(context.Background(), task), asynq.SkipRetry)
}

func TestHandleAnalysisRunRetriesOtherErrors(t *testing.T) {
	id := uuid.New()
	task, err := tasks.NewAnalysisRunTask(id, models.RunRequest{})
	require.NoError(t, err)

	p := new(mockProcessor)
	p.On("Process", mock.Anything, id, models.RunRequest{}).Return(nil, errors.New("store unavailable"))

	err = HandleAnalysisRun(AnalysisDeps{Processor: p})(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
