// Package models defines the core domain models for the automation runtime.
package models

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusPublished WorkflowStatus = "published" // Current active, executable
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Historical, not executable
)

// NodeType classifies a workflow node.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"   // Entry point, never re-executed
	NodeTypeAction    NodeType = "action"    // Side-effecting step
	NodeTypeCondition NodeType = "condition" // Branches on a predicate
	NodeTypeWait      NodeType = "wait"      // Delays the run for a parsed duration
	NodeTypeGoal      NodeType = "goal"      // Completes the run when reached
)

// ActionKind identifies the concrete operation an action node performs.
type ActionKind string

const (
	ActionKindSendEmail         ActionKind = "send_email"
	ActionKindSendSMS           ActionKind = "send_sms"
	ActionKindCreateTask        ActionKind = "create_task"
	ActionKindCreateLead        ActionKind = "create_lead"
	ActionKindUpdateContact     ActionKind = "update_contact"
	ActionKindMovePipelineStage ActionKind = "move_pipeline_stage"
	ActionKindAddTag            ActionKind = "add_tag"
	ActionKindRemoveTag         ActionKind = "remove_tag"
	ActionKindWebhook           ActionKind = "webhook"
	ActionKindCondition         ActionKind = "condition"
)

// Branch keys produced by condition nodes.
const (
	BranchKeyYes = "yes"
	BranchKeyNo  = "no"
)

// Node is a single typed step in a workflow graph.
type Node struct {
	ID         string         `json:"id"          validate:"required"`
	Type       NodeType       `json:"type"        validate:"required,oneof=trigger action condition wait goal"`
	ActionKind ActionKind     `json:"action_kind,omitempty"`
	Name       string         `json:"name"`
	Config     map[string]any `json:"config,omitempty"`
	Order      int            `json:"order"`
}

// Edge is a transition between two nodes. ConditionKey selects the edge when
// the source node produced a matching branch key; Default marks the fallback
// edge when no key matches.
type Edge struct {
	ID           string `json:"id"`
	FromNodeID   string `json:"from_node_id" validate:"required"`
	ToNodeID     string `json:"to_node_id"   validate:"required"`
	ConditionKey string `json:"condition_key,omitempty"`
	Default      bool   `json:"default,omitempty"`
}

// Workflow is an automation definition: a directed graph of nodes and edges.
// Graphs are immutable from the runtime's point of view; they are created and
// edited by the site builder, never by the executor.
type Workflow struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id" validate:"required"`
	Name           string         `json:"name"            validate:"required,min=3"`
	Description    string         `json:"description"`
	Status         WorkflowStatus `json:"status"          validate:"required"`
	TriggerEvent   string         `json:"trigger_event,omitempty"` // business event that starts a run (new_lead, booking, order)
	Nodes          []*Node        `json:"nodes"`
	Edges          []*Edge        `json:"edges"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

var (
	ErrNoTriggerNode     = errors.New("workflow has no trigger node")
	ErrDuplicateEdgeKey  = errors.New("duplicate condition key on outgoing edges")
	ErrUnknownEdgeTarget = errors.New("edge references unknown node")
)

// NodeByID returns the node with the given ID.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}

	return nil, false
}

// TriggerNode returns the graph entry point.
func (w *Workflow) TriggerNode() (*Node, bool) {
	for _, n := range w.Nodes {
		if n.Type == NodeTypeTrigger {
			return n, true
		}
	}

	return nil, false
}

// OutgoingEdges returns the edges leaving a node in definition order. The
// order is significant: when no condition key matches and no edge is flagged
// as default, the first edge wins.
func (w *Workflow) OutgoingEdges(nodeID string) []*Edge {
	edges := make([]*Edge, 0, 2)

	for _, e := range w.Edges {
		if e.FromNodeID == nodeID {
			edges = append(edges, e)
		}
	}

	return edges
}

// Validate checks the structural invariants the executor relies on: every
// edge endpoint exists, at most one outgoing edge per (node, condition key)
// pair, and every action node carries an action kind known to the runtime.
// knownKind is supplied by the handler registry so unregistered kinds are
// caught at graph load, not mid-run.
func (w *Workflow) Validate(knownKind func(ActionKind) bool) error {
	if _, ok := w.TriggerNode(); !ok {
		return ErrNoTriggerNode
	}

	for _, e := range w.Edges {
		if _, ok := w.NodeByID(e.FromNodeID); !ok {
			return fmt.Errorf("%w: edge %s from %s", ErrUnknownEdgeTarget, e.ID, e.FromNodeID)
		}

		if _, ok := w.NodeByID(e.ToNodeID); !ok {
			return fmt.Errorf("%w: edge %s to %s", ErrUnknownEdgeTarget, e.ID, e.ToNodeID)
		}
	}

	for _, n := range w.Nodes {
		seen := make(map[string]bool)

		for _, e := range w.OutgoingEdges(n.ID) {
			if seen[e.ConditionKey] {
				return fmt.Errorf("%w: node %s key %q", ErrDuplicateEdgeKey, n.ID, e.ConditionKey)
			}

			seen[e.ConditionKey] = true
		}

		if n.Type == NodeTypeAction && knownKind != nil && !knownKind(n.ActionKind) {
			return fmt.Errorf("node %s uses unregistered action kind %q", n.ID, n.ActionKind)
		}
	}

	return nil
}
