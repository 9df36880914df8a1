// Package condition evaluates boolean predicates over run context, used by
// condition nodes to pick an outgoing edge.
package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pulsehq/pulse/pkg/models"
)

// Operators supported by condition nodes. An unknown operator evaluates to
// false rather than failing the run.
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorExists      = "exists"
	OperatorNotExists   = "not_exists"
)

// Condition is a single predicate over the run context.
type Condition struct {
	Field    string `json:"field"    validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value,omitempty"`
}

// Result is what a condition node contributes to the run context.
type Result struct {
	ConditionMet bool   `json:"condition_met"`
	BranchKey    string `json:"branch_key"`
}

// FromConfig extracts a condition from a node's free-form config.
func FromConfig(config map[string]any) Condition {
	cond := Condition{}

	if field, ok := config["field"].(string); ok {
		cond.Field = field
	}

	if operator, ok := config["operator"].(string); ok {
		cond.Operator = operator
	}

	cond.Value = config["value"]

	return cond
}

// Evaluate resolves the condition's field against the run context and applies
// the operator. Evaluation is fail-closed: unresolvable fields and unknown
// operators yield ConditionMet=false, never an error.
func Evaluate(cond Condition, runCtx *models.RunContext) Result {
	value, found := runCtx.Resolve(cond.Field)

	var met bool

	switch cond.Operator {
	case OperatorEquals:
		met = found && coerceString(value) == coerceString(cond.Value)
	case OperatorNotEquals:
		met = !found || coerceString(value) != coerceString(cond.Value)
	case OperatorContains:
		met = found && strings.Contains(coerceString(value), coerceString(cond.Value))
	case OperatorNotContains:
		met = !found || !strings.Contains(coerceString(value), coerceString(cond.Value))
	case OperatorGreaterThan:
		left, leftOK := coerceFloat(value)
		right, rightOK := coerceFloat(cond.Value)
		met = found && leftOK && rightOK && left > right
	case OperatorLessThan:
		left, leftOK := coerceFloat(value)
		right, rightOK := coerceFloat(cond.Value)
		met = found && leftOK && rightOK && left < right
	case OperatorExists:
		met = found && value != nil
	case OperatorNotExists:
		met = !found || value == nil
	default:
		met = false
	}

	branch := models.BranchKeyNo
	if met {
		branch = models.BranchKeyYes
	}

	return Result{ConditionMet: met, BranchKey: branch}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
