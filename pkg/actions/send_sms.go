package actions

import (
	"context"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/template"
)

// SendSMSHandler renders the configured message against run context and
// hands it to the Messenger collaborator.
type SendSMSHandler struct {
	messenger Messenger
}

func NewSendSMSHandler(messenger Messenger) *SendSMSHandler {
	return &SendSMSHandler{messenger: messenger}
}

func (h *SendSMSHandler) Kind() models.ActionKind { return models.ActionKindSendSMS }

func (h *SendSMSHandler) External() bool { return true }

func (h *SendSMSHandler) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string"},
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"message"},
	}
}

func (h *SendSMSHandler) Execute(ctx context.Context, req Request) (Fragment, error) {
	if h.messenger == nil {
		return Unavailable("sms"), nil
	}

	to := recipientPhone(req)
	if to == "" {
		return Fragment{"sent": false, "reason": "missing recipient"}, nil
	}

	message := template.Render(stringConfig(req.Node.Config, "message"), req.Context)

	result, err := h.messenger.SendSMS(ctx, to, message)
	if err != nil {
		return Fragment{"sent": false, "reason": err.Error()}, nil
	}

	return Fragment{"sent": result.Sent, "reason": result.Reason, "provider_id": result.ProviderID, "to": to}, nil
}

func recipientPhone(req Request) string {
	if to := template.Render(stringConfig(req.Node.Config, "to"), req.Context); to != "" && !isLiteralPlaceholder(to) {
		return to
	}

	if v, ok := req.Context.Resolve("contact.phone"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}
