package registry_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/registry"
	"github.com/pulsehq/pulse/pkg/testutil"
)

func defaultRegistry() *registry.Registry {
	return registry.Default(slog.Default(), actions.Collaborators{})
}

func TestDefaultRegistersAllKinds(t *testing.T) {
	t.Parallel()

	reg := defaultRegistry()

	kinds := []models.ActionKind{
		models.ActionKindSendEmail,
		models.ActionKindSendSMS,
		models.ActionKindCreateTask,
		models.ActionKindCreateLead,
		models.ActionKindUpdateContact,
		models.ActionKindMovePipelineStage,
		models.ActionKindAddTag,
		models.ActionKindRemoveTag,
		models.ActionKindWebhook,
		models.ActionKindCondition,
	}

	for _, kind := range kinds {
		assert.True(t, reg.Known(kind), "kind %s should be registered", kind)
	}

	assert.False(t, reg.Known("teleport_contact"))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := registry.New(slog.Default())

	require.NoError(t, reg.Register(actions.NewConditionHandler()))
	assert.Error(t, reg.Register(actions.NewConditionHandler()))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	reg := defaultRegistry()

	// send_email requires a subject.
	assert.NoError(t, reg.ValidateConfig(models.ActionKindSendEmail, map[string]any{"subject": "hi"}))
	assert.Error(t, reg.ValidateConfig(models.ActionKindSendEmail, map[string]any{}))

	// webhook requires a url.
	assert.NoError(t, reg.ValidateConfig(models.ActionKindWebhook, map[string]any{"url": "https://x.example"}))
	assert.Error(t, reg.ValidateConfig(models.ActionKindWebhook, nil))

	// Unregistered kinds are rejected outright.
	assert.Error(t, reg.ValidateConfig("teleport_contact", map[string]any{}))
}

func TestValidateWorkflow(t *testing.T) {
	t.Parallel()

	reg := defaultRegistry()

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("email"), testutil.WithConfig(map[string]any{"subject": "hi"})),
		),
		testutil.WithEdges(testutil.Edge("trigger", "email")),
	)

	require.NoError(t, reg.ValidateWorkflow(workflow))
}

func TestValidateWorkflowUnknownKind(t *testing.T) {
	t.Parallel()

	reg := defaultRegistry()

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("odd"), testutil.WithActionKind("teleport_contact")),
		),
		testutil.WithEdges(testutil.Edge("trigger", "odd")),
	)

	err := reg.ValidateWorkflow(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered action kind")
}

func TestValidateWorkflowBadNodeConfig(t *testing.T) {
	t.Parallel()

	reg := defaultRegistry()

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.CreateTestNode(testutil.WithID("email"), testutil.WithConfig(map[string]any{"body": "missing subject"})),
		),
		testutil.WithEdges(testutil.Edge("trigger", "email")),
	)

	err := reg.ValidateWorkflow(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
