package actions

import (
	"context"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/template"
)

// CRM entity names the handlers upsert against.
const (
	entityTask          = "task"
	entityLead          = "lead"
	entityContact       = "contact"
	entityPipelineStage = "pipeline_stage"
	entityTag           = "tag"
)

// CRMHandler covers every CRM-mutating action kind. All of them reduce to
// an idempotent upsert against one entity with fields built from node config
// rendered against run context, so a single handler parameterized by kind
// and entity keeps the dispatch table flat.
type CRMHandler struct {
	crm    CRMService
	kind   models.ActionKind
	entity string
}

func NewCreateTaskHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindCreateTask, entity: entityTask}
}

func NewCreateLeadHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindCreateLead, entity: entityLead}
}

func NewUpdateContactHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindUpdateContact, entity: entityContact}
}

func NewMovePipelineStageHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindMovePipelineStage, entity: entityPipelineStage}
}

func NewAddTagHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindAddTag, entity: entityTag}
}

func NewRemoveTagHandler(crm CRMService) *CRMHandler {
	return &CRMHandler{crm: crm, kind: models.ActionKindRemoveTag, entity: entityTag}
}

func (h *CRMHandler) Kind() models.ActionKind { return h.kind }

func (h *CRMHandler) External() bool { return false }

func (h *CRMHandler) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{"type": "object"},
		},
	}
}

func (h *CRMHandler) Execute(ctx context.Context, req Request) (Fragment, error) {
	if h.crm == nil {
		return Fragment{"completed": false, "unavailable": true, "reason": "crm provider not configured"}, nil
	}

	fields := h.buildFields(req)

	record, err := h.crm.Upsert(ctx, h.entity, fields)
	if err != nil {
		// A CRM write that fails outright means the workflow cannot make
		// the progress later nodes depend on.
		return nil, err
	}

	return Fragment{"completed": true, "entity": h.entity, "record": record}, nil
}

func (h *CRMHandler) buildFields(req Request) map[string]any {
	fields, _ := req.Node.Config["fields"].(map[string]any)
	fields = template.RenderMap(fields, req.Context)

	if fields == nil {
		fields = make(map[string]any)
	}

	// The contact the run concerns is the natural key for contact and tag
	// mutations; the upsert stays retry-safe.
	if contactID, ok := req.Context.Resolve("contact.id"); ok {
		if _, present := fields["contact_id"]; !present {
			fields["contact_id"] = contactID
		}
	}

	switch h.kind {
	case models.ActionKindMovePipelineStage:
		if stage := stringConfig(req.Node.Config, "stage"); stage != "" {
			fields["stage"] = template.Render(stage, req.Context)
		}
	case models.ActionKindAddTag:
		fields["op"] = "add"
		fields["tag"] = template.Render(stringConfig(req.Node.Config, "tag"), req.Context)
	case models.ActionKindRemoveTag:
		fields["op"] = "remove"
		fields["tag"] = template.Render(stringConfig(req.Node.Config, "tag"), req.Context)
	}

	return fields
}
