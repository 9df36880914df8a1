package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/audit"
	"github.com/pulsehq/pulse/pkg/engine"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/registry"
	"github.com/pulsehq/pulse/pkg/testutil"
)

func newTestEngine(store *testutil.MemoryPersistence, cfg engine.Config) *engine.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.Default(logger, actions.Collaborators{
		Mailer:    &actions.LogMailer{Logger: logger},
		Messenger: &actions.LogMessenger{Logger: logger},
		CRM:       &actions.LogCRM{Logger: logger},
	})

	return engine.New(store, reg, nil, audit.NewLogger(store, logger), logger, cfg)
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Monday inside the default business window.
var monday10am = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func linearWorkflow() *models.Workflow {
	return testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("email")),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "email"),
			testutil.Edge("email", "goal"),
		),
	)
}

func TestExecuteCompletesLinearWorkflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.StepsProcessed)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, saved.Status)
	assert.Equal(t, 2, saved.StepsCompleted)
	require.NotNil(t, saved.CompletedAt)

	_, ok := saved.Context.StepResult("email")
	require.True(t, ok)

	goal, ok := saved.Context.StepResult("goal")
	require.True(t, ok)
	assert.Equal(t, true, goal["goal_reached"])

	logs, err := store.LogEntriesByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestExecuteBatchTerminalRunIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	for _, status := range []models.RunStatus{
		models.RunStatusCompleted,
		models.RunStatusFailed,
		models.RunStatusCancelled,
	} {
		run := testutil.CreateTestRun(workflow, testutil.WithRunStatus(status))
		require.NoError(t, store.SaveRun(ctx, run))

		result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
		require.NoError(t, err)

		assert.Equal(t, status, result.Status)
		assert.Equal(t, 0, result.StepsProcessed)
		assert.Equal(t, engine.OutcomeDone, outcome.Kind)
	}

	assert.Empty(t, store.ScheduledJobs())
}

func TestExecuteBatchRunNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	_, _, err := eng.ExecuteBatch(ctx, engine.Request{RunID: "missing"})
	require.Error(t, err)
}

func TestExecuteBatchWorkflowGoneFailsRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := linearWorkflow()
	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, engine.OutcomeDone, outcome.Kind)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "workflow definition not found", saved.Error)
}

func TestExecuteBatchInvalidGraphFailsRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithEdges(testutil.Edge("trigger", "nowhere")),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, _, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, result.Status)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Contains(t, saved.Error, "workflow graph is invalid")
}

func TestConditionBranching(t *testing.T) {
	t.Parallel()

	buildWorkflow := func() *models.Workflow {
		return testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.CreateTestNode(
					testutil.WithID("check"),
					testutil.WithType(models.NodeTypeCondition),
					testutil.WithConfig(map[string]any{"field": "contact.email", "operator": "exists"}),
				),
				testutil.CreateTestNode(testutil.WithID("email")),
				testutil.CreateTestNode(testutil.WithID("matched"), testutil.WithType(models.NodeTypeGoal)),
				testutil.CreateTestNode(testutil.WithID("unmatched"), testutil.WithType(models.NodeTypeGoal)),
			),
			testutil.WithEdges(
				testutil.Edge("trigger", "check"),
				testutil.ConditionalEdge("check", "email", "yes"),
				testutil.ConditionalEdge("check", "unmatched", "no"),
				testutil.Edge("email", "matched"),
			),
		)
	}

	tests := []struct {
		name     string
		context  models.RunContext
		wantGoal string
		wantMet  bool
	}{
		{
			name: "predicate holds takes yes branch",
			context: models.RunContext{
				Contact: map[string]any{"email": "lead@example.com"},
			},
			wantGoal: "matched",
			wantMet:  true,
		},
		{
			name: "predicate fails takes no branch",
			context: models.RunContext{
				Contact: map[string]any{"name": "No Email"},
			},
			wantGoal: "unmatched",
			wantMet:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := testutil.NewMemoryPersistence()
			eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

			workflow := buildWorkflow()
			require.NoError(t, store.SaveWorkflow(ctx, workflow))

			run := testutil.CreateTestRun(workflow, testutil.WithRunContext(tt.context))
			require.NoError(t, store.SaveRun(ctx, run))

			result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusCompleted, result.Status)

			saved, err := store.RunByID(ctx, run.ID)
			require.NoError(t, err)
			check, ok := saved.Context.StepResult("check")
			require.True(t, ok)
			assert.Equal(t, tt.wantMet, check["condition_met"])

			_, ok = saved.Context.StepResult(tt.wantGoal)
			assert.True(t, ok)
		})
	}
}

func TestConditionFallsBackToDefaultEdge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	// No edge carries the "yes" key the condition produces; the default
	// edge must win over definition order.
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(
				testutil.WithID("check"),
				testutil.WithType(models.NodeTypeCondition),
				testutil.WithConfig(map[string]any{"field": "contact.email", "operator": "exists"}),
			),
			testutil.CreateTestNode(testutil.WithID("first"), testutil.WithType(models.NodeTypeGoal)),
			testutil.CreateTestNode(testutil.WithID("fallback"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "check"),
			testutil.ConditionalEdge("check", "first", "no"),
			testutil.DefaultEdge("check", "fallback"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	_, ok := saved.Context.StepResult("fallback")
	assert.True(t, ok)

	_, ok = saved.Context.StepResult("first")
	assert.False(t, ok)
}

func TestMaxStepsGuardFailsLoopingRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(
				testutil.WithID("tag"),
				testutil.WithActionKind(models.ActionKindAddTag),
				testutil.WithConfig(map[string]any{"tag": "looping"}),
			),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "tag"),
			testutil.Edge("tag", "tag"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow, testutil.WithMaxSteps(3))
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, result.Status)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "possible infinite loop: maximum step count reached", saved.Error)
	assert.Equal(t, 3, saved.StepsCompleted)
}

func TestMaxRuntimeGuardFailsOldRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{
		MaxRuntime: time.Hour,
		Now:        fixedClock(monday10am),
	})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	run.StartedAt = monday10am.Add(-2 * time.Hour)
	require.NoError(t, store.SaveRun(ctx, run))

	result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, 0, result.StepsProcessed)
	assert.Equal(t, engine.OutcomeDone, outcome.Kind)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "max runtime exceeded", saved.Error)
}

func TestWaitNodePausesAndSchedulesResume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(
				testutil.WithID("hold"),
				testutil.WithType(models.NodeTypeWait),
				testutil.WithConfig(map[string]any{"duration": "PT1H"}),
			),
			testutil.CreateTestNode(testutil.WithID("email")),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "hold"),
			testutil.Edge("hold", "email"),
			testutil.Edge("email", "goal"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	wantResume := monday10am.Add(time.Hour)

	assert.Equal(t, models.RunStatusPaused, result.Status)
	assert.Equal(t, 1, result.StepsProcessed)
	assert.Equal(t, engine.OutcomePaused, outcome.Kind)
	assert.Equal(t, "email", outcome.ResumeFromNodeID)
	assert.True(t, outcome.ResumeAt.Equal(wantResume))

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPaused, saved.Status)
	assert.Equal(t, "email", saved.CurrentNodeID)
	require.NotNil(t, saved.PausedUntil)
	assert.True(t, saved.PausedUntil.Equal(wantResume))

	jobs := store.ScheduledJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, run.ID, jobs[0].RunID)
	assert.Equal(t, "email", jobs[0].NodeID)
	assert.Equal(t, "wait", jobs[0].Reason)
	assert.Equal(t, models.ScheduledJobStatusQueued, jobs[0].Status)
	assert.True(t, jobs[0].ExecuteAt.Equal(wantResume))

	// The time-driven resume lands on the node after the wait and runs the
	// rest of the graph.
	result, err = eng.Execute(ctx, engine.Request{RunID: run.ID, ResumeFromNodeID: "email"})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.StepsProcessed)
}

func TestBusinessHoursPauseExternalNode(t *testing.T) {
	t.Parallel()

	// Saturday is outside the configured business days.
	saturday := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(saturday)})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NoError(t, store.SaveSettings(ctx, testutil.CreateTestSettings(workflow.OrganizationID)))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	wantResume := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, models.RunStatusPaused, result.Status)
	assert.Equal(t, 0, result.StepsProcessed)
	assert.Equal(t, engine.OutcomePaused, outcome.Kind)
	assert.Equal(t, "email", outcome.ResumeFromNodeID)
	assert.True(t, outcome.ResumeAt.Equal(wantResume))

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.StepsCompleted)

	_, ok := saved.Context.StepResult("email")
	assert.False(t, ok)

	jobs := store.ScheduledJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "email", jobs[0].NodeID)
	assert.Equal(t, "business_hours", jobs[0].Reason)
	assert.True(t, jobs[0].ExecuteAt.Equal(wantResume))
}

func TestQuietHoursPauseExternalNode(t *testing.T) {
	t.Parallel()

	// Monday 22:30 is inside the overnight quiet window but the business
	// hours policy already closed at 17:00, so that policy owns the pause.
	lateMonday := time.Date(2026, 8, 24, 22, 30, 0, 0, time.UTC)

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(lateMonday)})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	settings := testutil.CreateTestSettings(workflow.OrganizationID)
	settings.BusinessHours.Enabled = false
	require.NoError(t, store.SaveSettings(ctx, settings))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	_, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	wantResume := time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, engine.OutcomePaused, outcome.Kind)
	assert.True(t, outcome.ResumeAt.Equal(wantResume))

	jobs := store.ScheduledJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "quiet_hours", jobs[0].Reason)
}

func TestGatingDoesNotTouchInternalNodes(t *testing.T) {
	t.Parallel()

	// Outside business hours, but the graph only contains internal steps;
	// nothing should pause.
	saturday := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(saturday)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(
				testutil.WithID("tag"),
				testutil.WithActionKind(models.ActionKindAddTag),
				testutil.WithConfig(map[string]any{"tag": "hot"}),
			),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "tag"),
			testutil.Edge("tag", "goal"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NoError(t, store.SaveSettings(ctx, testutil.CreateTestSettings(workflow.OrganizationID)))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Empty(t, store.ScheduledJobs())
}

func TestBatchLimitYieldsContinuation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{BatchSize: 2, Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("a"), testutil.WithActionKind(models.ActionKindAddTag), testutil.WithConfig(map[string]any{"tag": "a"})),
			testutil.CreateTestNode(testutil.WithID("b"), testutil.WithActionKind(models.ActionKindAddTag), testutil.WithConfig(map[string]any{"tag": "b"})),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "a"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "goal"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	// First batch spends one slot on the trigger and one on node a.
	result, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusRunning, result.Status)
	assert.Equal(t, 1, result.StepsProcessed)
	assert.Equal(t, engine.OutcomeContinue, outcome.Kind)
	assert.Equal(t, "b", outcome.ResumeFromNodeID)

	result, outcome, err = eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID, ResumeFromNodeID: outcome.ResumeFromNodeID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.StepsProcessed)
	assert.Equal(t, engine.OutcomeDone, outcome.Kind)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.StepsCompleted)
}

func TestExecuteLoopsContinuationsInProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{BatchSize: 2, Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("a"), testutil.WithActionKind(models.ActionKindAddTag), testutil.WithConfig(map[string]any{"tag": "a"})),
			testutil.CreateTestNode(testutil.WithID("b"), testutil.WithActionKind(models.ActionKindAddTag), testutil.WithConfig(map[string]any{"tag": "b"})),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "a"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "goal"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 3, result.StepsProcessed)
}

func TestTriggerWithoutEdgesCompletesImmediately(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	result, err := eng.Execute(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 0, result.StepsProcessed)
}

func TestGatingPauseOverWeekendResumesAndCompletes(t *testing.T) {
	t.Parallel()

	// A run paused Saturday morning resumes Monday 09:00, some 47 hours
	// later. Suspended time must not count against the runtime budget.
	saturday := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	monday9am := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(saturday)})

	workflow := linearWorkflow()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NoError(t, store.SaveSettings(ctx, testutil.CreateTestSettings(workflow.OrganizationID)))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	_, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, outcome.Kind)
	assert.Equal(t, "business_hours", outcome.Reason)
	require.True(t, outcome.ResumeAt.Equal(monday9am))

	paused, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, paused.PausedAt)
	assert.True(t, paused.PausedAt.Equal(saturday))

	// The scheduler fires at the resume instant, well past the 24h budget
	// in calendar terms.
	resumed := newTestEngine(store, engine.Config{Now: fixedClock(monday9am)})

	result, err := resumed.Execute(ctx, engine.Request{RunID: run.ID, ResumeFromNodeID: outcome.ResumeFromNodeID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.StepsProcessed)
	assert.Empty(t, result.Error)

	saved, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, saved.Status)
	assert.Empty(t, saved.Error)
	assert.Nil(t, saved.PausedUntil)
	assert.Nil(t, saved.PausedAt)

	_, ok := saved.Context.StepResult("email")
	assert.True(t, ok)
}

func TestWaitLongerThanRuntimeBudgetResumes(t *testing.T) {
	t.Parallel()

	// A 26 hour wait exceeds the 24h runtime budget on the calendar but not
	// in execution time.
	ctx := context.Background()
	store := testutil.NewMemoryPersistence()
	eng := newTestEngine(store, engine.Config{Now: fixedClock(monday10am)})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(
				testutil.WithID("hold"),
				testutil.WithType(models.NodeTypeWait),
				testutil.WithConfig(map[string]any{"duration": "P1DT2H"}),
			),
			testutil.CreateTestNode(testutil.WithID("email")),
			testutil.CreateTestNode(testutil.WithID("goal"), testutil.WithType(models.NodeTypeGoal)),
		),
		testutil.WithEdges(
			testutil.Edge("trigger", "hold"),
			testutil.Edge("hold", "email"),
			testutil.Edge("email", "goal"),
		),
	)
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	run := testutil.CreateTestRun(workflow)
	require.NoError(t, store.SaveRun(ctx, run))

	_, outcome, err := eng.ExecuteBatch(ctx, engine.Request{RunID: run.ID})
	require.NoError(t, err)
	require.Equal(t, engine.OutcomePaused, outcome.Kind)
	assert.Equal(t, "wait", outcome.Reason)

	wantResume := monday10am.Add(26 * time.Hour)
	require.True(t, outcome.ResumeAt.Equal(wantResume))

	resumed := newTestEngine(store, engine.Config{Now: fixedClock(wantResume)})

	result, err := resumed.Execute(ctx, engine.Request{RunID: run.ID, ResumeFromNodeID: outcome.ResumeFromNodeID})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, 2, result.StepsProcessed)
}
