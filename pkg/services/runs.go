// Package services holds the application services sitting between the HTTP
// surface and the persistence layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/eventbus"
	"github.com/pulsehq/pulse/pkg/events"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
)

var (
	// ErrWorkflowNotExecutable rejects run creation against a workflow
	// that is not published.
	ErrWorkflowNotExecutable = errors.New("workflow is not published")
)

// CreateRunRequest carries the business event that starts a run.
type CreateRunRequest struct {
	WorkflowID     string
	OrganizationID string
	TriggerEvent   string
	Payload        map[string]any
	Contact        map[string]any
	IdempotencyKey string
	MaxSteps       int
}

// Runs creates run ledgers from business events and announces them on the
// event bus.
type Runs struct {
	store persistence.Persistence
	bus   eventbus.EventBus
}

func NewRuns(store persistence.Persistence, bus eventbus.EventBus) *Runs {
	return &Runs{store: store, bus: bus}
}

// Create builds a pending run for a published workflow. When an idempotency
// key is supplied and a run with that key already exists for the tenant, the
// existing run is returned with created=false and no event is published:
// duplicate triggers must not start duplicate automations.
func (s *Runs) Create(ctx context.Context, req CreateRunRequest) (*models.Run, bool, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.store.RunByIdempotencyKey(ctx, req.OrganizationID, req.IdempotencyKey)
		if err != nil && !persistence.IsRunNotFound(err) {
			return nil, false, fmt.Errorf("failed to check idempotency key: %w", err)
		}

		if existing != nil {
			return existing, false, nil
		}
	}

	workflow, err := s.store.WorkflowByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch workflow %s: %w", req.WorkflowID, err)
	}

	if workflow.Status != models.WorkflowStatusPublished {
		return nil, false, ErrWorkflowNotExecutable
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate run ID: %w", err)
	}

	now := time.Now().UTC()

	run := &models.Run{
		ID:             id.String(),
		WorkflowID:     req.WorkflowID,
		OrganizationID: req.OrganizationID,
		Status:         models.RunStatusPending,
		Context: models.RunContext{
			Payload: req.Payload,
			Contact: req.Contact,
		},
		MaxSteps:       req.MaxSteps,
		StartedAt:      now,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, false, fmt.Errorf("failed to persist run: %w", err)
	}

	if s.bus != nil {
		event := events.RunTriggered{
			BaseEvent: events.BaseEvent{
				ID:             s.bus.GenerateID(),
				Type:           events.RunTriggeredEvent,
				Timestamp:      now,
				OrganizationID: req.OrganizationID,
				RunID:          run.ID,
			},
			WorkflowID:   req.WorkflowID,
			TriggerEvent: req.TriggerEvent,
			Payload:      req.Payload,
		}

		if err := s.bus.Publish(ctx, run.ID, event); err != nil {
			return nil, false, fmt.Errorf("failed to publish run triggered event: %w", err)
		}
	}

	return run, true, nil
}

// Cancel marks a run cancelled. The executor honors cancellation at its next
// invocation entry; a batch already in flight finishes its node first.
func (s *Runs) Cancel(ctx context.Context, runID string) (*models.Run, error) {
	run, err := s.store.RunByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.Status.Terminal() {
		return run, nil
	}

	if !run.Transition(models.RunStatusCancelled) {
		return nil, fmt.Errorf("cannot cancel run in status %s", run.Status)
	}

	now := time.Now().UTC()
	run.CompletedAt = &now

	if err := s.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist cancelled run: %w", err)
	}

	return run, nil
}
