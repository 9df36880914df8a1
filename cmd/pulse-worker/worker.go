package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulsehq/pulse/pkg/audit"
	"github.com/pulsehq/pulse/pkg/engine"
	"github.com/pulsehq/pulse/pkg/eventbus"
	"github.com/pulsehq/pulse/pkg/events"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/otelhelper"
	"github.com/pulsehq/pulse/pkg/persistence"
	"github.com/pulsehq/pulse/pkg/ratelimit"
	"github.com/pulsehq/pulse/pkg/registry"
)

// Worker consumes run lifecycle events and drives the engine one batch per
// message. Continuations travel back through the bus, so a single run's
// execution can hop between worker processes without losing its place.
type Worker struct {
	id       string
	engine   *engine.Engine
	eventBus eventbus.EventBus
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewWorker(
	id string,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Worker {
	auditLog := audit.NewLogger(store, logger)
	eng := engine.New(store, reg, limiter, auditLog, logger, engine.Config{})

	return &Worker{
		id:       id,
		engine:   eng,
		eventBus: eventBus,
		logger:   logger.With("worker_id", id),
	}
}

// Start registers handlers, begins consuming and blocks until SIGINT or
// SIGTERM.
func (w *Worker) Start(ctx context.Context) error {
	tracer, err := otelhelper.NewTracer(ctx, "pulse-worker")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	w.tracer = tracer

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Handle(events.RunTriggeredEvent, w.handleRunTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.RunContinuedEvent, w.handleRunContinued); err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.RunResumedEvent, w.handleRunResumed); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.Info("Shutting down worker")
	cancel()

	return nil
}

func (w *Worker) handleRunTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.RunTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RunTriggered")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.run_triggered",
		attribute.String(otelhelper.RunIDKey, triggered.RunID),
		attribute.String(otelhelper.WorkflowIDKey, triggered.WorkflowID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	return w.executeBatch(ctx, span, engine.Request{RunID: triggered.RunID})
}

func (w *Worker) handleRunContinued(ctx context.Context, event any) error {
	continued, ok := event.(*events.RunContinued)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RunContinued")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.run_continued",
		attribute.String(otelhelper.RunIDKey, continued.RunID),
		attribute.String(otelhelper.NodeIDKey, continued.ResumeFromNodeID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	return w.executeBatch(ctx, span, engine.Request{
		RunID:            continued.RunID,
		ResumeFromNodeID: continued.ResumeFromNodeID,
	})
}

func (w *Worker) handleRunResumed(ctx context.Context, event any) error {
	resumed, ok := event.(*events.RunResumed)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RunResumed")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "worker.run_resumed",
		attribute.String(otelhelper.RunIDKey, resumed.RunID),
		attribute.String(otelhelper.NodeIDKey, resumed.ResumeFromNodeID),
		attribute.String(otelhelper.JobIDKey, resumed.ScheduledJobID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	return w.executeBatch(ctx, span, engine.Request{
		RunID:            resumed.RunID,
		ResumeFromNodeID: resumed.ResumeFromNodeID,
	})
}

// executeBatch runs one engine batch and publishes the follow-up lifecycle
// event. Returning an error nacks the message so the transport redelivers;
// run-level failures are terminal and acked.
func (w *Worker) executeBatch(ctx context.Context, span trace.Span, req engine.Request) error {
	result, outcome, err := w.engine.ExecuteBatch(ctx, req)
	if err != nil {
		if engine.IsRunNotFound(err) {
			w.logger.WarnContext(ctx, "Dropping event for unknown run", "run_id", req.RunID)

			return nil
		}

		otelhelper.SetError(span, err)

		return err
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(result.Status)))

	w.logger.InfoContext(ctx, "Batch processed",
		"run_id", result.RunID,
		"status", result.Status,
		"steps_processed", result.StepsProcessed,
		"outcome", outcome.Kind,
	)

	return w.publishOutcome(ctx, result, outcome)
}

func (w *Worker) publishOutcome(ctx context.Context, result engine.Result, outcome engine.Outcome) error {
	base := events.BaseEvent{
		ID:        w.eventBus.GenerateID(),
		Timestamp: time.Now().UTC(),
		RunID:     result.RunID,
		Metadata:  map[string]any{"worker_id": w.id},
	}

	var event events.Event

	switch outcome.Kind {
	case engine.OutcomeContinue:
		base.Type = events.RunContinuedEvent
		event = events.RunContinued{
			BaseEvent:        base,
			ResumeFromNodeID: outcome.ResumeFromNodeID,
		}
	case engine.OutcomePaused:
		base.Type = events.RunPausedEvent
		event = events.RunPaused{
			BaseEvent: base,
			NodeID:    outcome.ResumeFromNodeID,
			Reason:    outcome.Reason,
			ResumeAt:  outcome.ResumeAt,
		}
	case engine.OutcomeDone:
		switch {
		case result.Status == models.RunStatusFailed:
			base.Type = events.RunFailedEvent
			event = events.RunFailed{
				BaseEvent: base,
				Error:     result.Error,
			}
		case result.Status == models.RunStatusCompleted:
			base.Type = events.RunCompletedEvent
			event = events.RunCompleted{
				BaseEvent:      base,
				StepsCompleted: result.StepsProcessed,
			}
		default:
			// Cancelled or an idempotent terminal re-entry. Nothing to announce.
			return nil
		}
	default:
		return nil
	}

	if err := w.eventBus.Publish(ctx, result.RunID, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.GetType(), err)
	}

	return nil
}
