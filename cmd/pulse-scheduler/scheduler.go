package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulsehq/pulse/pkg/eventbus"
	"github.com/pulsehq/pulse/pkg/events"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
	"github.com/pulsehq/pulse/pkg/services"
)

// Scheduler owns the two time-driven dispatch loops: due resume jobs for
// paused runs, and recurring cron triggers for published workflows. Both
// only publish events; execution stays in the worker.
type Scheduler struct {
	store        persistence.Persistence
	eventBus     eventbus.EventBus
	runService   *services.Runs
	logger       *slog.Logger
	pollInterval time.Duration

	cron    *cron.Cron
	entries map[string]cron.EntryID // workflow ID to cron entry
	mutex   sync.Mutex
}

func NewScheduler(
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	pollInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		store:        store,
		eventBus:     eventBus,
		runService:   services.NewRuns(store, eventBus),
		logger:       logger,
		pollInterval: pollInterval,
		entries:      make(map[string]cron.EntryID),
	}
}

// Start runs both loops and blocks until SIGINT or SIGTERM.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if err := s.syncRecurringTriggers(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load recurring triggers", "error", err)
	}

	s.cron.Start()

	go s.pollLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler started successfully", "poll_interval", s.pollInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	s.logger.Info("Shutting down scheduler")
	cancel()
	<-s.cron.Stop().Done()

	return nil
}

// pollLoop dispatches due resume jobs and refreshes the recurring trigger
// table on every tick.
func (s *Scheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.dispatchDueJobs(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Failed to dispatch due jobs", "error", err)
			}

			if err := s.syncRecurringTriggers(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Failed to sync recurring triggers", "error", err)
			}
		}
	}
}

// dispatchDueJobs publishes a resume event for every queued job whose time
// has come, then marks it processed. A job is marked only after the publish
// succeeds, so a crash between the two at worst redelivers; the engine's
// terminal no-op and gating re-evaluation absorb duplicates.
func (s *Scheduler) dispatchDueJobs(ctx context.Context) error {
	now := time.Now().UTC()

	jobs, err := s.store.DueScheduledJobs(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to fetch due jobs: %w", err)
	}

	for _, job := range jobs {
		event := events.RunResumed{
			BaseEvent: events.BaseEvent{
				ID:        s.eventBus.GenerateID(),
				Type:      events.RunResumedEvent,
				Timestamp: now,
				RunID:     job.RunID,
				Metadata:  map[string]any{"reason": job.Reason},
			},
			ResumeFromNodeID: job.NodeID,
			ScheduledJobID:   job.ID,
		}

		if err := s.eventBus.Publish(ctx, job.RunID, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish resume event",
				"job_id", job.ID, "run_id", job.RunID, "error", err)

			continue
		}

		if err := s.store.MarkScheduledJob(ctx, job.ID, models.ScheduledJobStatusProcessed); err != nil {
			s.logger.ErrorContext(ctx, "Failed to mark job processed",
				"job_id", job.ID, "error", err)

			continue
		}

		s.logger.InfoContext(ctx, "Dispatched resume job",
			"job_id", job.ID, "run_id", job.RunID, "node_id", job.NodeID, "reason", job.Reason)
	}

	return nil
}

// syncRecurringTriggers registers a cron entry for every published workflow
// whose trigger node carries a cron expression, and drops entries for
// workflows that no longer qualify.
func (s *Scheduler) syncRecurringTriggers(ctx context.Context) error {
	workflows, err := s.store.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch workflows: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	active := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		cronExpr, ok := recurringTrigger(workflow)
		if !ok {
			continue
		}

		active[workflow.ID] = true

		if _, registered := s.entries[workflow.ID]; registered {
			continue
		}

		entryID, err := s.addTriggerEntry(ctx, workflow, cronExpr)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to register recurring trigger",
				"workflow_id", workflow.ID, "cron", cronExpr, "error", err)

			continue
		}

		s.entries[workflow.ID] = entryID
		s.logger.InfoContext(ctx, "Registered recurring trigger",
			"workflow_id", workflow.ID, "cron", cronExpr)
	}

	for workflowID, entryID := range s.entries {
		if !active[workflowID] {
			s.cron.Remove(entryID)
			delete(s.entries, workflowID)
			s.logger.InfoContext(ctx, "Removed recurring trigger", "workflow_id", workflowID)
		}
	}

	return nil
}

func (s *Scheduler) addTriggerEntry(ctx context.Context, workflow *models.Workflow, cronExpr string) (cron.EntryID, error) {
	workflowID := workflow.ID
	organizationID := workflow.OrganizationID
	triggerEvent := workflow.TriggerEvent

	return s.cron.AddFunc(cronExpr, func() {
		run, created, err := s.runService.Create(ctx, services.CreateRunRequest{
			WorkflowID:     workflowID,
			OrganizationID: organizationID,
			TriggerEvent:   triggerEvent,
			Payload:        map[string]any{"scheduled_at": time.Now().UTC().Format(time.RFC3339)},
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to create scheduled run",
				"workflow_id", workflowID, "error", err)

			return
		}

		if created {
			s.logger.InfoContext(ctx, "Created scheduled run",
				"workflow_id", workflowID, "run_id", run.ID)
		}
	})
}

// recurringTrigger reports the cron expression of a workflow's trigger node,
// when it has one and the workflow is executable.
func recurringTrigger(workflow *models.Workflow) (string, bool) {
	if workflow.Status != models.WorkflowStatusPublished {
		return "", false
	}

	trigger, ok := workflow.TriggerNode()
	if !ok {
		return "", false
	}

	cronExpr, ok := trigger.Config["cron"].(string)
	if !ok || cronExpr == "" {
		return "", false
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return "", false
	}

	return cronExpr, true
}
