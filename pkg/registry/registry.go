// Package registry maps action kinds to their handlers and validates node
// configurations before a run starts executing.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/models"
)

// Registry is the typed dispatch table over action kinds. It is assembled
// once at startup; an action kind absent from the table is caught when the
// graph loads, not discovered mid-run.
type Registry struct {
	logger   *slog.Logger
	handlers map[models.ActionKind]actions.Handler
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[models.ActionKind]actions.Handler),
	}
}

// Register adds a handler, rejecting duplicate kinds.
func (r *Registry) Register(handler actions.Handler) error {
	kind := handler.Kind()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("action kind %q already registered", kind)
	}

	r.handlers[kind] = handler

	return nil
}

// Handler returns the handler for an action kind.
func (r *Registry) Handler(kind models.ActionKind) (actions.Handler, bool) {
	handler, ok := r.handlers[kind]

	return handler, ok
}

// Known reports whether an action kind has a registered handler.
func (r *Registry) Known(kind models.ActionKind) bool {
	_, ok := r.handlers[kind]

	return ok
}

// ValidateConfig checks a node config against the handler's JSON schema.
func (r *Registry) ValidateConfig(kind models.ActionKind, config map[string]any) error {
	handler, ok := r.handlers[kind]
	if !ok {
		return fmt.Errorf("action kind %q not registered", kind)
	}

	schema := handler.ConfigSchema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for %q: %w", kind, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid config for %q: %s", kind, strings.Join(details, "; "))
	}

	return nil
}

// ValidateWorkflow runs graph-level validation plus per-node config
// validation, so every dispatch failure is known before execution begins.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	if err := workflow.Validate(r.Known); err != nil {
		return err
	}

	for _, node := range workflow.Nodes {
		if node.Type != models.NodeTypeAction && node.Type != models.NodeTypeCondition {
			continue
		}

		kind := node.ActionKind
		if node.Type == models.NodeTypeCondition {
			kind = models.ActionKindCondition
		}

		if err := r.ValidateConfig(kind, node.Config); err != nil {
			return fmt.Errorf("node %s: %w", node.ID, err)
		}
	}

	return nil
}

// Default builds the registry with every built-in handler wired to the
// given collaborators.
func Default(logger *slog.Logger, collab actions.Collaborators) *Registry {
	r := New(logger)

	for _, handler := range []actions.Handler{
		actions.NewSendEmailHandler(collab.Mailer),
		actions.NewSendSMSHandler(collab.Messenger),
		actions.NewCreateTaskHandler(collab.CRM),
		actions.NewCreateLeadHandler(collab.CRM),
		actions.NewUpdateContactHandler(collab.CRM),
		actions.NewMovePipelineStageHandler(collab.CRM),
		actions.NewAddTagHandler(collab.CRM),
		actions.NewRemoveTagHandler(collab.CRM),
		actions.NewWebhookHandler(collab.HTTP),
		actions.NewConditionHandler(),
	} {
		if err := r.Register(handler); err != nil {
			// Duplicate built-ins are a programming error.
			panic(err)
		}
	}

	return r
}
