package models

// RunStatus tracks an analysis run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Finished reports whether the run has reached a terminal state.
func (s RunStatus) Finished() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}
