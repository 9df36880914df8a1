package models

import "time"

// RunStatus represents the lifecycle state of a single workflow execution.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// validTransitions encodes the run state machine:
// pending -> running -> {paused, completed, failed, cancelled}; paused -> running.
var validTransitions = map[RunStatus][]RunStatus{
	RunStatusPending: {RunStatusRunning, RunStatusCancelled},
	RunStatusRunning: {RunStatusRunning, RunStatusPaused, RunStatusCompleted, RunStatusFailed, RunStatusCancelled},
	RunStatusPaused:  {RunStatusRunning, RunStatusCancelled},
}

// CanTransition reports whether moving from s to next is allowed.
func (s RunStatus) CanTransition(next RunStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Run is the persisted ledger of one workflow execution. The executor
// mutates it after every processed node; once terminal it is never written
// again except for audit log entries.
type Run struct {
	ID             string     `json:"id"`
	WorkflowID     string     `json:"workflow_id"     validate:"required"`
	OrganizationID string     `json:"organization_id" validate:"required"`
	Status         RunStatus  `json:"status"`
	CurrentNodeID  string     `json:"current_node_id,omitempty"`
	Context        RunContext `json:"context"`
	StepsCompleted int        `json:"steps_completed"`
	MaxSteps       int        `json:"max_steps"`
	StartedAt      time.Time  `json:"started_at"`
	PausedUntil    *time.Time `json:"paused_until,omitempty"`
	PausedAt       *time.Time `json:"paused_at,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Transition moves the run to the given status, returning false when the
// state machine forbids it. Leaving the paused status clears the pause
// markers.
func (r *Run) Transition(next RunStatus) bool {
	if !r.Status.CanTransition(next) {
		return false
	}

	r.Status = next
	if next != RunStatusPaused {
		r.PausedUntil = nil
		r.PausedAt = nil
	}

	return true
}
