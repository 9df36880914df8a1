// Package engine executes automation runs: it walks a workflow graph one
// bounded batch of nodes at a time, persisting the run ledger after every
// step so execution survives stateless, time-limited invocations. Each
// invocation ends by finalizing the run, pausing it behind a scheduled
// resume, or asking the caller to re-invoke it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/audit"
	"github.com/pulsehq/pulse/pkg/delay"
	"github.com/pulsehq/pulse/pkg/gating"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
	"github.com/pulsehq/pulse/pkg/ratelimit"
	"github.com/pulsehq/pulse/pkg/registry"
)

const (
	// DefaultBatchSize bounds the nodes processed per invocation.
	DefaultBatchSize = 10
	// DefaultMaxSteps bounds total nodes per run against runaway graphs.
	DefaultMaxSteps = 100
	// DefaultMaxRuntime bounds active execution time per run; time spent
	// paused does not count against it.
	DefaultMaxRuntime = 24 * time.Hour
)

// Guard failure messages, also surfaced on the failed run.
const (
	errMaxSteps   = "possible infinite loop: maximum step count reached"
	errMaxRuntime = "max runtime exceeded"
)

// Config tunes the engine's guards and batching.
type Config struct {
	BatchSize  int
	MaxSteps   int // default for runs created without an explicit budget
	MaxRuntime time.Duration
	Now        func() time.Time // test seam; defaults to time.Now
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}

	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}

	if c.MaxRuntime <= 0 {
		c.MaxRuntime = DefaultMaxRuntime
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

// Request identifies the run to drive and, on resume, the node to restart
// from.
type Request struct {
	RunID            string
	ResumeFromNodeID string
}

// Result reports what this invocation did. Error carries the failure
// message when Status is failed.
type Result struct {
	RunID          string
	Status         models.RunStatus
	StepsProcessed int
	Error          string
}

// Engine drives runs against the persistence layer, the action handler
// registry, the gating policy and the tenant rate limiter. Re-entrancy for
// a single run relies on the soft status lock: terminal runs are discarded
// on entry and every suspension persists full resumption state first.
type Engine struct {
	store    persistence.Persistence
	registry *registry.Registry
	limiter  *ratelimit.Limiter
	audit    *audit.Logger
	logger   *slog.Logger
	cfg      Config
}

func New(store persistence.Persistence, reg *registry.Registry, limiter *ratelimit.Limiter, auditLog *audit.Logger, logger *slog.Logger, cfg Config) *Engine {
	return &Engine{
		store:    store,
		registry: reg,
		limiter:  limiter,
		audit:    auditLog,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// Execute drives a run until it terminates or suspends, looping batches
// in-process. This is the synchronous flavor of the continuation used by
// the HTTP invocation contract.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	total := 0

	for {
		result, outcome, err := e.ExecuteBatch(ctx, req)
		if err != nil {
			return result, err
		}

		total += result.StepsProcessed

		if outcome.Kind != OutcomeContinue {
			result.StepsProcessed = total

			return result, nil
		}

		req = Request{RunID: req.RunID, ResumeFromNodeID: outcome.ResumeFromNodeID}
	}
}

// ExecuteBatch processes at most one batch of nodes and reports how to
// proceed. Invoking a terminal run is a no-op returning its status.
func (e *Engine) ExecuteBatch(ctx context.Context, req Request) (Result, Outcome, error) {
	run, err := e.store.RunByID(ctx, req.RunID)
	if err != nil {
		return Result{RunID: req.RunID}, Outcome{}, fmt.Errorf("failed to fetch run %s: %w", req.RunID, err)
	}

	logger := e.logger.With("run_id", run.ID, "workflow_id", run.WorkflowID)

	if run.Status.Terminal() {
		logger.InfoContext(ctx, "run already terminal, discarding invocation", "status", run.Status)

		return Result{RunID: run.ID, Status: run.Status, Error: run.Error}, Outcome{Kind: OutcomeDone}, nil
	}

	workflow, err := e.store.WorkflowByID(ctx, run.WorkflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return e.failRun(ctx, run, "", "workflow definition not found"), Outcome{Kind: OutcomeDone}, nil
		}

		return Result{RunID: run.ID, Status: run.Status}, Outcome{}, fmt.Errorf("failed to fetch workflow %s: %w", run.WorkflowID, err)
	}

	if err := e.registry.ValidateWorkflow(workflow); err != nil {
		return e.failRun(ctx, run, "", "workflow graph is invalid: "+err.Error()), Outcome{Kind: OutcomeDone}, nil
	}

	settings, err := e.store.SettingsByOrganization(ctx, run.OrganizationID)
	if err != nil {
		if !persistence.IsSettingsNotFound(err) {
			return Result{RunID: run.ID, Status: run.Status}, Outcome{}, fmt.Errorf("failed to fetch settings: %w", err)
		}

		settings = models.DefaultAutomationSettings(run.OrganizationID)
	}

	now := e.cfg.Now()

	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}

	// The runtime budget bounds execution time, not calendar time: a run
	// legitimately sleeps through gating windows and wait delays far longer
	// than the budget itself. Credit the suspended span back by shifting
	// StartedAt before the guard sees it.
	if run.Status == models.RunStatusPaused && run.PausedAt != nil {
		if suspended := now.Sub(*run.PausedAt); suspended > 0 {
			run.StartedAt = run.StartedAt.Add(suspended)
		}
	}

	if run.MaxSteps <= 0 {
		run.MaxSteps = e.cfg.MaxSteps
	}

	if req.ResumeFromNodeID != "" {
		run.CurrentNodeID = req.ResumeFromNodeID
	}

	if run.CurrentNodeID == "" {
		trigger, ok := workflow.TriggerNode()
		if !ok {
			return e.failRun(ctx, run, "", "workflow has no trigger node"), Outcome{Kind: OutcomeDone}, nil
		}

		run.CurrentNodeID = trigger.ID
	}

	if !run.Transition(models.RunStatusRunning) {
		logger.WarnContext(ctx, "invalid status transition to running, discarding invocation", "status", run.Status)

		return Result{RunID: run.ID, Status: run.Status}, Outcome{Kind: OutcomeDone}, nil
	}

	if err := e.store.SaveRun(ctx, run); err != nil {
		return Result{RunID: run.ID, Status: run.Status}, Outcome{}, fmt.Errorf("failed to persist run: %w", err)
	}

	steps := 0

	for i := 0; i < e.cfg.BatchSize; i++ {
		now = e.cfg.Now()

		// Both guards re-check on every node: a batch may cross either
		// boundary mid-flight.
		if run.StepsCompleted >= run.MaxSteps {
			return e.failRunSteps(ctx, run, steps, errMaxSteps), Outcome{Kind: OutcomeDone}, nil
		}

		if now.Sub(run.StartedAt) > e.cfg.MaxRuntime {
			return e.failRunSteps(ctx, run, steps, errMaxRuntime), Outcome{Kind: OutcomeDone}, nil
		}

		node, ok := workflow.NodeByID(run.CurrentNodeID)
		if !ok {
			return e.failRunSteps(ctx, run, steps, fmt.Sprintf("node %s not found in workflow", run.CurrentNodeID)), Outcome{Kind: OutcomeDone}, nil
		}

		switch node.Type {
		case models.NodeTypeTrigger:
			next := e.nextNodeID(workflow, node, "")
			if next == "" {
				return e.completeRun(ctx, run, steps), Outcome{Kind: OutcomeDone}, nil
			}

			run.CurrentNodeID = next

		case models.NodeTypeGoal:
			// A goal completes the run immediately, regardless of
			// further edges.
			run.Context.MergeStep(node.ID, actions.Fragment{"goal_reached": true})
			run.StepsCompleted++
			steps++
			e.audit.Info(ctx, run.ID, node.ID, "goal reached", nil)

			return e.completeRun(ctx, run, steps), Outcome{Kind: OutcomeDone}, nil

		case models.NodeTypeWait:
			return e.processWaitNode(ctx, run, workflow, node, steps, now)

		case models.NodeTypeAction, models.NodeTypeCondition:
			result, outcome, done, err := e.processExecutableNode(ctx, run, workflow, node, settings, &steps, now)
			if err != nil || done {
				return result, outcome, err
			}

		default:
			return e.failRunSteps(ctx, run, steps, fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type)), Outcome{Kind: OutcomeDone}, nil
		}

		if err := e.store.SaveRun(ctx, run); err != nil {
			return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps}, Outcome{}, fmt.Errorf("failed to persist run progress: %w", err)
		}
	}

	// Batch exhausted with the run still in flight: hand back a
	// continuation instead of holding the invocation open.
	logger.InfoContext(ctx, "batch limit reached, continuing in next invocation",
		"steps_processed", steps, "resume_from", run.CurrentNodeID)

	return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps},
		Outcome{Kind: OutcomeContinue, ResumeFromNodeID: run.CurrentNodeID}, nil
}

// processExecutableNode runs one action or condition node. done=true means
// the invocation should return with the given result/outcome.
func (e *Engine) processExecutableNode(
	ctx context.Context,
	run *models.Run,
	workflow *models.Workflow,
	node *models.Node,
	settings *models.AutomationSettings,
	steps *int,
	now time.Time,
) (Result, Outcome, bool, error) {
	kind := node.ActionKind
	if node.Type == models.NodeTypeCondition {
		kind = models.ActionKindCondition
	}

	var fragment actions.Fragment

	handler, ok := e.registry.Handler(kind)
	if !ok {
		// Load-time validation makes this unreachable for known graphs;
		// an unknown kind is skipped, never fatal.
		fragment = actions.Skipped(fmt.Sprintf("unknown action kind %q", kind))
		e.audit.Warn(ctx, run.ID, node.ID, "skipping unknown action kind", map[string]any{"action_kind": string(kind)})
	} else {
		if handler.External() {
			result, outcome, done, err := e.gateExternalNode(ctx, run, node, settings, *steps, now)
			if done {
				return result, outcome, true, err
			}
		}

		executed, err := handler.Execute(ctx, actions.Request{Node: node, Context: &run.Context, Settings: settings})
		if err != nil {
			e.audit.Error(ctx, run.ID, node.ID, "node execution failed", map[string]any{"error": err.Error()})

			return e.failRunSteps(ctx, run, *steps, fmt.Sprintf("node %s failed: %v", node.ID, err)), Outcome{Kind: OutcomeDone}, true, nil
		}

		fragment = executed
	}

	run.Context.MergeStep(node.ID, fragment)
	run.StepsCompleted++
	*steps++

	e.audit.Info(ctx, run.ID, node.ID, "node executed", map[string]any{
		"action_kind": string(kind),
		"result":      map[string]any(fragment),
	})

	branchKey, _ := fragment["branch_key"].(string)

	next := e.nextNodeID(workflow, node, branchKey)
	if next == "" {
		return e.completeRun(ctx, run, *steps), Outcome{Kind: OutcomeDone}, true, nil
	}

	run.CurrentNodeID = next

	return Result{}, Outcome{}, false, nil
}

// gateExternalNode applies business-hours, quiet-hours and rate-limit policy
// before an outside-world action. done=true means the run was paused (or
// failed on malformed policy) and the invocation should return.
func (e *Engine) gateExternalNode(
	ctx context.Context,
	run *models.Run,
	node *models.Node,
	settings *models.AutomationSettings,
	steps int,
	now time.Time,
) (Result, Outcome, bool, error) {
	decision, err := gating.Evaluate(settings, now)
	if err != nil {
		return e.failRunSteps(ctx, run, steps, "gating policy error: "+err.Error()), Outcome{Kind: OutcomeDone}, true, nil
	}

	if !decision.Allowed {
		result, outcome, err := e.pauseRun(ctx, run, node.ID, decision.ResumeAt, decision.Reason, steps)

		return result, outcome, true, err
	}

	limit := e.limiter.Allow(ctx, run.OrganizationID, settings.RateLimits.MaxMessagesPerHour, now)
	if !limit.Allowed {
		result, outcome, err := e.pauseRun(ctx, run, node.ID, limit.RetryAt, "rate_limit", steps)

		return result, outcome, true, err
	}

	return Result{}, Outcome{}, false, nil
}

// processWaitNode schedules the resume on the node after the wait and pauses
// the run.
func (e *Engine) processWaitNode(
	ctx context.Context,
	run *models.Run,
	workflow *models.Workflow,
	node *models.Node,
	steps int,
	now time.Time,
) (Result, Outcome, error) {
	duration := delay.FromConfig(node.Config)
	resumeAt := now.Add(duration)

	// Edge selection with a neutral result: a wait node's outgoing edge is
	// unconditional.
	next := e.nextNodeID(workflow, node, "")

	run.Context.MergeStep(node.ID, actions.Fragment{
		"waited":    true,
		"resume_at": resumeAt.UTC().Format(time.RFC3339),
	})
	run.StepsCompleted++
	steps++

	if next == "" {
		// Nothing after the wait; the delay is pointless but harmless.
		return e.completeRun(ctx, run, steps), Outcome{Kind: OutcomeDone}, nil
	}

	return e.pauseRun(ctx, run, next, resumeAt, "wait", steps)
}

// pauseRun persists the full resumption state, then creates the scheduled
// job the time-driven consumer will fire.
func (e *Engine) pauseRun(ctx context.Context, run *models.Run, nodeID string, resumeAt time.Time, reason string, steps int) (Result, Outcome, error) {
	run.CurrentNodeID = nodeID

	if !run.Transition(models.RunStatusPaused) {
		return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps}, Outcome{},
			fmt.Errorf("cannot pause run in status %s", run.Status)
	}

	pausedAt := e.cfg.Now()
	run.PausedUntil = &resumeAt
	run.PausedAt = &pausedAt

	if err := e.store.SaveRun(ctx, run); err != nil {
		return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps}, Outcome{}, fmt.Errorf("failed to persist paused run: %w", err)
	}

	job := &models.ScheduledJob{
		ID:        uuid.New().String(),
		RunID:     run.ID,
		NodeID:    nodeID,
		Reason:    reason,
		Status:    models.ScheduledJobStatusQueued,
		ExecuteAt: resumeAt,
		CreatedAt: e.cfg.Now().UTC(),
	}

	if err := e.store.CreateScheduledJob(ctx, job); err != nil {
		// The run is paused but nothing will wake it; surface the error so
		// the invoker retries rather than silently stranding the run.
		return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps}, Outcome{}, fmt.Errorf("failed to schedule resume job: %w", err)
	}

	e.audit.Info(ctx, run.ID, nodeID, "run paused", map[string]any{
		"reason":    reason,
		"resume_at": resumeAt.UTC().Format(time.RFC3339),
	})

	return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps},
		Outcome{Kind: OutcomePaused, ResumeFromNodeID: nodeID, ResumeAt: resumeAt, Reason: reason}, nil
}

func (e *Engine) completeRun(ctx context.Context, run *models.Run, steps int) Result {
	now := e.cfg.Now().UTC()

	run.Transition(models.RunStatusCompleted)
	run.CompletedAt = &now

	if err := e.store.SaveRun(ctx, run); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist completed run", "run_id", run.ID, "error", err)
	}

	e.audit.Info(ctx, run.ID, "", "run completed", map[string]any{"steps_completed": run.StepsCompleted})

	return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps}
}

func (e *Engine) failRun(ctx context.Context, run *models.Run, nodeID, message string) Result {
	return e.failRunAt(ctx, run, nodeID, message, 0)
}

func (e *Engine) failRunSteps(ctx context.Context, run *models.Run, steps int, message string) Result {
	return e.failRunAt(ctx, run, run.CurrentNodeID, message, steps)
}

func (e *Engine) failRunAt(ctx context.Context, run *models.Run, nodeID, message string, steps int) Result {
	now := e.cfg.Now().UTC()

	run.Error = message
	run.Transition(models.RunStatusFailed)
	run.CompletedAt = &now

	if err := e.store.SaveRun(ctx, run); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist failed run", "run_id", run.ID, "error", err)
	}

	e.audit.Error(ctx, run.ID, nodeID, message, nil)
	e.logger.ErrorContext(ctx, "run failed", "run_id", run.ID, "error", message)

	return Result{RunID: run.ID, Status: run.Status, StepsProcessed: steps, Error: message}
}

// nextNodeID selects the outgoing edge for a node: exact condition-key match
// first, then the edge flagged as default, then the first edge in definition
// order. Deterministic for identical inputs.
func (e *Engine) nextNodeID(workflow *models.Workflow, node *models.Node, branchKey string) string {
	edges := workflow.OutgoingEdges(node.ID)

	switch len(edges) {
	case 0:
		return ""
	case 1:
		return edges[0].ToNodeID
	}

	for _, edge := range edges {
		if edge.ConditionKey != "" && edge.ConditionKey == branchKey {
			return edge.ToNodeID
		}
	}

	for _, edge := range edges {
		if edge.Default {
			return edge.ToNodeID
		}
	}

	return edges[0].ToNodeID
}

// ErrRunNotFound re-exports the persistence sentinel for callers that only
// import the engine.
var ErrRunNotFound = persistence.ErrRunNotFound

// IsRunNotFound reports whether an invocation failed because the run does
// not exist.
func IsRunNotFound(err error) bool {
	return errors.Is(err, persistence.ErrRunNotFound)
}
