package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"citypulse/internal/models"
)

// Defines constants for task types used in Asynq.

const (
	// TypeAnalysisRun executes a queued analysis run and stores its result.
	TypeAnalysisRun = "analysis:run"
)

// AnalysisRunPayload is the JSON body of a TypeAnalysisRun task.
type AnalysisRunPayload struct {
	RunID   uuid.UUID         `json:"run_id"`
	Request models.RunRequest `json:"request"`
}

func NewAnalysisRunTask(runID uuid.UUID, req models.RunRequest) (*asynq.Task, error) {
	b, err := json.Marshal(AnalysisRunPayload{RunID: runID, Request: req})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis run payload: %w", err)
	}
	return asynq.NewTask(TypeAnalysisRun, b), nil
}

// ParseAnalysisRunPayload decodes a task body. A payload without a run ID is rejected.
func ParseAnalysisRunPayload(b []byte) (AnalysisRunPayload, error) {
	var p AnalysisRunPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("unmarshal analysis run payload: %w", err)
	}
	if p.RunID == uuid.Nil {
		return p, fmt.Errorf("analysis run payload missing run_id")
	}
	return p, nil
}
