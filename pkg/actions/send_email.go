package actions

import (
	"context"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/template"
)

// SendEmailHandler renders the configured subject and body against run
// context and hands the message to the Mailer collaborator.
type SendEmailHandler struct {
	mailer Mailer
}

func NewSendEmailHandler(mailer Mailer) *SendEmailHandler {
	return &SendEmailHandler{mailer: mailer}
}

func (h *SendEmailHandler) Kind() models.ActionKind { return models.ActionKindSendEmail }

func (h *SendEmailHandler) External() bool { return true }

func (h *SendEmailHandler) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string"},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []any{"subject"},
	}
}

func (h *SendEmailHandler) Execute(ctx context.Context, req Request) (Fragment, error) {
	if h.mailer == nil {
		return Unavailable("email"), nil
	}

	to := recipientEmail(req)
	if to == "" {
		return Fragment{"sent": false, "reason": "missing recipient"}, nil
	}

	msg := EmailMessage{
		To:      to,
		Subject: template.Render(stringConfig(req.Node.Config, "subject"), req.Context),
		HTML:    template.Render(stringConfig(req.Node.Config, "body"), req.Context),
	}

	if req.Settings != nil {
		msg.From = req.Settings.Sender.FromEmail
		msg.ReplyTo = req.Settings.Sender.ReplyTo
	}

	result, err := h.mailer.SendEmail(ctx, msg)
	if err != nil {
		// Provider trouble is a soft failure; the workflow is not broken.
		return Fragment{"sent": false, "reason": err.Error()}, nil
	}

	return Fragment{"sent": result.Sent, "reason": result.Reason, "provider_id": result.ProviderID, "to": to}, nil
}

// recipientEmail resolves the recipient: explicit config wins, then the
// contact's email from context.
func recipientEmail(req Request) string {
	if to := template.Render(stringConfig(req.Node.Config, "to"), req.Context); to != "" && !isLiteralPlaceholder(to) {
		return to
	}

	if v, ok := req.Context.Resolve("contact.email"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

func stringConfig(config map[string]any, key string) string {
	s, _ := config[key].(string)

	return s
}

// isLiteralPlaceholder reports whether a rendered value is still an
// unresolved placeholder, which would otherwise be sent verbatim.
func isLiteralPlaceholder(value string) bool {
	return len(value) > 3 && value[:2] == "{{"
}
