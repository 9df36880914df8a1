package actions

import (
	"context"

	"github.com/pulsehq/pulse/pkg/models"
)

// Fragment is the result a handler merges into the run context under
// step_<nodeID>.
type Fragment = map[string]any

// Request carries everything a handler needs to execute one node.
type Request struct {
	Node     *models.Node
	Context  *models.RunContext
	Settings *models.AutomationSettings
}

// Handler executes one action kind. Execute returns an error only when the
// workflow itself is broken (the run then fails); provider-level trouble is
// absorbed into the fragment as a soft failure.
type Handler interface {
	Kind() models.ActionKind

	// External reports whether the action contacts the outside world
	// (email, SMS); such actions are subject to business-hours and
	// quiet-hours gating and to tenant rate limits.
	External() bool

	// ConfigSchema returns a JSON schema for the node config, validated
	// at graph load so a malformed node is caught before execution.
	ConfigSchema() map[string]any

	Execute(ctx context.Context, req Request) (Fragment, error)
}

// Unavailable builds the typed soft result returned when an optional
// collaborator is not configured for this deployment.
func Unavailable(capability string) Fragment {
	return Fragment{
		"sent":        false,
		"unavailable": true,
		"reason":      capability + " provider not configured",
	}
}

// Skipped builds the fragment recorded for an unknown action kind.
func Skipped(reason string) Fragment {
	return Fragment{"skipped": true, "reason": reason}
}
