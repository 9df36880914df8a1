// Package events defines the typed run lifecycle events exchanged between
// the API, the worker and the scheduler.
package events

import (
	"time"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "pulse.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// RunTriggeredEvent fires when a business event creates a fresh run.
	RunTriggeredEvent EventType = "run.triggered"
	// RunContinuedEvent fires when a batch limit interrupted a run; the
	// worker re-invokes the engine where it left off.
	RunContinuedEvent EventType = "run.continued"
	// RunResumedEvent fires when a scheduled job comes due.
	RunResumedEvent EventType = "run.resumed"
	// RunPausedEvent announces a suspension (wait node, gating, rate limit).
	RunPausedEvent EventType = "run.paused"
	// RunCompletedEvent announces successful termination.
	RunCompletedEvent EventType = "run.completed"
	// RunFailedEvent announces terminal failure.
	RunFailedEvent EventType = "run.failed"
)

// Event is implemented by every published event.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OrganizationID string         `json:"organization_id,omitempty"`
	RunID          string         `json:"run_id"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type RunTriggered struct {
	BaseEvent

	WorkflowID   string         `json:"workflow_id"`
	TriggerEvent string         `json:"trigger_event,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

func (e RunTriggered) GetType() EventType { return RunTriggeredEvent }

type RunContinued struct {
	BaseEvent

	ResumeFromNodeID string `json:"resume_from_node_id"`
}

func (e RunContinued) GetType() EventType { return RunContinuedEvent }

type RunResumed struct {
	BaseEvent

	ResumeFromNodeID string `json:"resume_from_node_id"`
	ScheduledJobID   string `json:"scheduled_job_id,omitempty"`
}

func (e RunResumed) GetType() EventType { return RunResumedEvent }

type RunPaused struct {
	BaseEvent

	NodeID   string    `json:"node_id"`
	Reason   string    `json:"reason"`
	ResumeAt time.Time `json:"resume_at"`
}

func (e RunPaused) GetType() EventType { return RunPausedEvent }

type RunCompleted struct {
	BaseEvent

	StepsCompleted int `json:"steps_completed"`
}

func (e RunCompleted) GetType() EventType { return RunCompletedEvent }

type RunFailed struct {
	BaseEvent

	Error string `json:"error"`
}

func (e RunFailed) GetType() EventType { return RunFailedEvent }
