// Package actions maps node action kinds to concrete side-effecting
// operations, executed against abstract provider capabilities.
package actions

import (
	"context"
	"log/slog"
)

// SendResult is the structured outcome of a messaging call. Provider
// failures are reported here, never raised: downstream condition nodes
// branch on sent=false.
type SendResult struct {
	Sent       bool   `json:"sent"`
	Reason     string `json:"reason,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// EmailMessage is an outbound email request.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	From    string
	ReplyTo string
}

// HTTPResult is the outcome of a webhook call. Non-2xx responses set
// OK=false; only transport-level failures surface via the error return.
type HTTPResult struct {
	Status int  `json:"status"`
	OK     bool `json:"ok"`
}

// Mailer sends email on behalf of a tenant.
type Mailer interface {
	SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error)
}

// Messenger sends SMS on behalf of a tenant.
type Messenger interface {
	SendSMS(ctx context.Context, to, message string) (SendResult, error)
}

// CRMService upserts records in the tenant's CRM. Implementations must be
// safe to retry: the runtime delivers at-least-once.
type CRMService interface {
	Upsert(ctx context.Context, entity string, fields map[string]any) (map[string]any, error)
}

// HTTPCaller performs webhook calls.
type HTTPCaller interface {
	Call(ctx context.Context, url, method string, headers map[string]string, body map[string]any) (HTTPResult, error)
}

// Collaborators bundles the external capabilities the runtime depends on.
// Any of them may be nil; handlers then produce a typed unavailable result
// instead of failing the run.
type Collaborators struct {
	Mailer    Mailer
	Messenger Messenger
	CRM       CRMService
	HTTP      HTTPCaller
}

// LogMailer is a development Mailer that records sends on the process log.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error) {
	m.Logger.InfoContext(ctx, "email send (log provider)",
		"to", msg.To, "subject", msg.Subject, "from", msg.From)

	return SendResult{Sent: true, ProviderID: "log"}, nil
}

// LogMessenger is a development Messenger that records sends on the process log.
type LogMessenger struct {
	Logger *slog.Logger
}

func (m *LogMessenger) SendSMS(ctx context.Context, to, message string) (SendResult, error) {
	m.Logger.InfoContext(ctx, "sms send (log provider)", "to", to, "message", message)

	return SendResult{Sent: true, ProviderID: "log"}, nil
}

// LogCRM is a development CRMService that records upserts on the process log
// and echoes the fields back as the stored record.
type LogCRM struct {
	Logger *slog.Logger
}

func (c *LogCRM) Upsert(ctx context.Context, entity string, fields map[string]any) (map[string]any, error) {
	c.Logger.InfoContext(ctx, "crm upsert (log provider)", "entity", entity, "fields", fields)

	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}

	record["entity"] = entity

	return record, nil
}
