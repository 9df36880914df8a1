package actions

import (
	"context"

	"github.com/pulsehq/pulse/pkg/condition"
	"github.com/pulsehq/pulse/pkg/models"
)

// ConditionHandler evaluates the node's predicate and reports the branch key
// the traversal uses to pick an outgoing edge.
type ConditionHandler struct{}

func NewConditionHandler() *ConditionHandler { return &ConditionHandler{} }

func (h *ConditionHandler) Kind() models.ActionKind { return models.ActionKindCondition }

func (h *ConditionHandler) External() bool { return false }

func (h *ConditionHandler) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field":    map[string]any{"type": "string"},
			"operator": map[string]any{"type": "string"},
			"value":    map[string]any{},
		},
		"required": []any{"field", "operator"},
	}
}

func (h *ConditionHandler) Execute(_ context.Context, req Request) (Fragment, error) {
	result := condition.Evaluate(condition.FromConfig(req.Node.Config), req.Context)

	return Fragment{
		"condition_met": result.ConditionMet,
		"branch_key":    result.BranchKey,
	}, nil
}
