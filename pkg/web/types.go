// Package web provides HTTP request and response types for the run API.
package web

import (
	"time"

	"github.com/pulsehq/pulse/pkg/models"
)

// ExecuteRunRequest is the invocation payload for the run executor. It is
// the contract both the HTTP surface and the worker use.
type ExecuteRunRequest struct {
	RunID            string `json:"run_id"                        validate:"required"`
	ResumeFromNodeID string `json:"resume_from_node_id,omitempty"`
}

// ExecuteRunResponse reports one invocation's result.
type ExecuteRunResponse struct {
	Success        bool             `json:"success"`
	RunID          string           `json:"run_id"`
	Status         models.RunStatus `json:"status"`
	StepsProcessed int              `json:"steps_processed"`
	Error          string           `json:"error,omitempty"`
}

// CreateRunRequest starts a workflow run from a business event.
type CreateRunRequest struct {
	WorkflowID     string         `json:"workflow_id"     validate:"required"`
	OrganizationID string         `json:"organization_id" validate:"required"`
	TriggerEvent   string         `json:"trigger_event"`
	Payload        map[string]any `json:"payload"`
	Contact        map[string]any `json:"contact"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	MaxSteps       int            `json:"max_steps,omitempty"     validate:"omitempty,min=1"`
}

// RunResponse is the public view of a run.
type RunResponse struct {
	ID             string            `json:"id"`
	WorkflowID     string            `json:"workflow_id"`
	OrganizationID string            `json:"organization_id"`
	Status         models.RunStatus  `json:"status"`
	CurrentNodeID  string            `json:"current_node_id,omitempty"`
	StepsCompleted int               `json:"steps_completed"`
	StartedAt      time.Time         `json:"started_at"`
	PausedUntil    *time.Time        `json:"paused_until,omitempty"`
	Error          string            `json:"error,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Context        models.RunContext `json:"context"`
}

// TransformRunResponse builds the public run view.
func TransformRunResponse(run *models.Run) RunResponse {
	return RunResponse{
		ID:             run.ID,
		WorkflowID:     run.WorkflowID,
		OrganizationID: run.OrganizationID,
		Status:         run.Status,
		CurrentNodeID:  run.CurrentNodeID,
		StepsCompleted: run.StepsCompleted,
		StartedAt:      run.StartedAt,
		PausedUntil:    run.PausedUntil,
		Error:          run.Error,
		CompletedAt:    run.CompletedAt,
		Context:        run.Context,
	}
}

// UpdateSettingsRequest replaces a tenant's automation policy.
type UpdateSettingsRequest struct {
	BusinessHours models.BusinessHours  `json:"business_hours"`
	QuietHours    models.QuietHours     `json:"quiet_hours"`
	RateLimits    models.RateLimits     `json:"rate_limits"`
	Sender        models.SenderIdentity `json:"sender"`
}
