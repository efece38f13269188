package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"citypulse/internal/models"
)

// --- Provider Status (defined here so services and stores share it without a cycle) ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusInactive                       // Provider is temporarily unavailable (e.g., network, rate limit)
	ProviderStatusDisabled                       // Provider is not configured or explicitly disabled
)

func (s ProviderStatus) String() string {
	switch s {
	case ProviderStatusActive:
		return "active"
	case ProviderStatusInactive:
		return "inactive"
	case ProviderStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// --- Job Client ---

type JobClient interface {
	EnqueueRun(ctx context.Context, runID uuid.UUID, req models.RunRequest, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// --- Run Store ---

// RunStore persists analysis runs. SaveRun inserts or replaces by ID.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.RunOverview, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error

	Ping(ctx context.Context) error
	Close() error
}
