// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
)

// CreateTestNode creates a test node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:         uuid.New().String(),
		Type:       models.NodeTypeAction,
		ActionKind: models.ActionKindSendEmail,
		Name:       "Test Node",
		Config:     map[string]any{"subject": "test", "body": "test body"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithType sets the node type.
func WithType(nodeType models.NodeType) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithActionKind sets the action kind.
func WithActionKind(kind models.ActionKind) func(*models.Node) {
	return func(n *models.Node) {
		n.ActionKind = kind
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// CreateTestWorkflow creates a published workflow with a trigger node and
// no further graph. Callers add nodes and edges for the shape under test.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		OrganizationID: "org-test",
		Name:           "Test Workflow",
		Description:    "A workflow for testing",
		Status:         models.WorkflowStatusPublished,
		TriggerEvent:   "new_lead",
		Nodes: []*models.Node{
			{ID: "trigger", Type: models.NodeTypeTrigger, Name: "Trigger"},
		},
		Edges:     []*models.Edge{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes appends nodes to the workflow.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, nodes...)
	}
}

// WithEdges appends edges to the workflow.
func WithEdges(edges ...*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Edges = append(w.Edges, edges...)
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// Edge builds a plain edge between two nodes.
func Edge(from, to string) *models.Edge {
	return &models.Edge{ID: uuid.New().String(), FromNodeID: from, ToNodeID: to}
}

// ConditionalEdge builds an edge selected by a branch key.
func ConditionalEdge(from, to, conditionKey string) *models.Edge {
	return &models.Edge{
		ID:           uuid.New().String(),
		FromNodeID:   from,
		ToNodeID:     to,
		ConditionKey: conditionKey,
	}
}

// DefaultEdge builds a fallback edge.
func DefaultEdge(from, to string) *models.Edge {
	return &models.Edge{ID: uuid.New().String(), FromNodeID: from, ToNodeID: to, Default: true}
}

// CreateTestRun creates a pending run for a workflow.
func CreateTestRun(workflow *models.Workflow, overrides ...func(*models.Run)) *models.Run {
	now := time.Now().UTC()

	run := &models.Run{
		ID:             uuid.New().String(),
		WorkflowID:     workflow.ID,
		OrganizationID: workflow.OrganizationID,
		Status:         models.RunStatusPending,
		Context: models.RunContext{
			Payload: map[string]any{"source": "test"},
			Contact: map[string]any{"email": "lead@example.com", "name": "Test Lead"},
		},
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(run)
	}

	return run
}

// WithRunContext sets the run context.
func WithRunContext(runCtx models.RunContext) func(*models.Run) {
	return func(r *models.Run) {
		r.Context = runCtx
	}
}

// WithMaxSteps sets the run step budget.
func WithMaxSteps(maxSteps int) func(*models.Run) {
	return func(r *models.Run) {
		r.MaxSteps = maxSteps
	}
}

// WithRunStatus sets the run status.
func WithRunStatus(status models.RunStatus) func(*models.Run) {
	return func(r *models.Run) {
		r.Status = status
	}
}

// CreateTestSettings creates settings with weekday business hours and
// overnight quiet hours, the common tenant shape.
func CreateTestSettings(organizationID string) *models.AutomationSettings {
	return &models.AutomationSettings{
		OrganizationID: organizationID,
		BusinessHours: models.BusinessHours{
			Enabled:  true,
			Start:    "09:00",
			End:      "17:00",
			Days:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Timezone: "UTC",
		},
		QuietHours: models.QuietHours{
			Enabled: true,
			Start:   "21:00",
			End:     "08:00",
		},
		UpdatedAt: time.Now().UTC(),
	}
}
