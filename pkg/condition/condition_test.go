package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsehq/pulse/pkg/condition"
	"github.com/pulsehq/pulse/pkg/models"
)

func testRunContext() *models.RunContext {
	return &models.RunContext{
		Payload: map[string]any{
			"source": "contact_form",
			"amount": float64(1500),
			"note":   "urgent follow up",
		},
		Contact: map[string]any{
			"email": "lead@example.com",
			"phone": nil,
			"tags":  []any{"vip"},
		},
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cond condition.Condition
		met  bool
	}{
		{
			name: "equals match",
			cond: condition.Condition{Field: "payload.source", Operator: condition.OperatorEquals, Value: "contact_form"},
			met:  true,
		},
		{
			name: "equals mismatch",
			cond: condition.Condition{Field: "payload.source", Operator: condition.OperatorEquals, Value: "booking"},
			met:  false,
		},
		{
			name: "equals coerces numbers to strings",
			cond: condition.Condition{Field: "payload.amount", Operator: condition.OperatorEquals, Value: "1500"},
			met:  true,
		},
		{
			name: "not equals",
			cond: condition.Condition{Field: "payload.source", Operator: condition.OperatorNotEquals, Value: "booking"},
			met:  true,
		},
		{
			name: "contains",
			cond: condition.Condition{Field: "payload.note", Operator: condition.OperatorContains, Value: "urgent"},
			met:  true,
		},
		{
			name: "not contains",
			cond: condition.Condition{Field: "payload.note", Operator: condition.OperatorNotContains, Value: "closed"},
			met:  true,
		},
		{
			name: "greater than numeric",
			cond: condition.Condition{Field: "payload.amount", Operator: condition.OperatorGreaterThan, Value: float64(1000)},
			met:  true,
		},
		{
			name: "greater than against numeric string",
			cond: condition.Condition{Field: "payload.amount", Operator: condition.OperatorGreaterThan, Value: "2000"},
			met:  false,
		},
		{
			name: "greater than on non-numeric field fails closed",
			cond: condition.Condition{Field: "payload.source", Operator: condition.OperatorGreaterThan, Value: float64(1)},
			met:  false,
		},
		{
			name: "less than",
			cond: condition.Condition{Field: "payload.amount", Operator: condition.OperatorLessThan, Value: float64(2000)},
			met:  true,
		},
		{
			name: "exists",
			cond: condition.Condition{Field: "contact.email", Operator: condition.OperatorExists},
			met:  true,
		},
		{
			name: "exists on nil value",
			cond: condition.Condition{Field: "contact.phone", Operator: condition.OperatorExists},
			met:  false,
		},
		{
			name: "not exists on missing field",
			cond: condition.Condition{Field: "contact.company", Operator: condition.OperatorNotExists},
			met:  true,
		},
		{
			name: "missing field fails closed",
			cond: condition.Condition{Field: "payload.missing", Operator: condition.OperatorEquals, Value: "x"},
			met:  false,
		},
		{
			name: "unknown operator fails closed",
			cond: condition.Condition{Field: "payload.source", Operator: "matches_regex", Value: ".*"},
			met:  false,
		},
		{
			name: "not equals on missing field is met",
			cond: condition.Condition{Field: "payload.missing", Operator: condition.OperatorNotEquals, Value: "x"},
			met:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := condition.Evaluate(tt.cond, testRunContext())

			assert.Equal(t, tt.met, result.ConditionMet)

			if tt.met {
				assert.Equal(t, models.BranchKeyYes, result.BranchKey)
			} else {
				assert.Equal(t, models.BranchKeyNo, result.BranchKey)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cond := condition.FromConfig(map[string]any{
		"field":    "payload.source",
		"operator": "equals",
		"value":    "contact_form",
	})

	assert.Equal(t, "payload.source", cond.Field)
	assert.Equal(t, condition.OperatorEquals, cond.Operator)
	assert.Equal(t, "contact_form", cond.Value)
}

func TestFromConfigMissingKeys(t *testing.T) {
	t.Parallel()

	cond := condition.FromConfig(map[string]any{})

	assert.Empty(t, cond.Field)
	assert.Empty(t, cond.Operator)
	assert.Nil(t, cond.Value)
}
