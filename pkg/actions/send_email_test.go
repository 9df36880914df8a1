package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/models"
)

type fakeMailer struct {
	lastMessage actions.EmailMessage
	err         error
}

func (m *fakeMailer) SendEmail(_ context.Context, msg actions.EmailMessage) (actions.SendResult, error) {
	m.lastMessage = msg
	if m.err != nil {
		return actions.SendResult{}, m.err
	}

	return actions.SendResult{Sent: true, ProviderID: "fake"}, nil
}

func emailRequest(config map[string]any) actions.Request {
	return actions.Request{
		Node: &models.Node{
			ID:         "email",
			Type:       models.NodeTypeAction,
			ActionKind: models.ActionKindSendEmail,
			Config:     config,
		},
		Context: &models.RunContext{
			Payload: map[string]any{"offer": "spring cleaning"},
			Contact: map[string]any{"email": "lead@example.com", "name": "Dana"},
		},
	}
}

func TestSendEmailRendersTemplates(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	handler := actions.NewSendEmailHandler(mailer)

	fragment, err := handler.Execute(context.Background(), emailRequest(map[string]any{
		"subject": "Hi {{contact.name}}",
		"body":    "About {{payload.offer}}",
	}))
	require.NoError(t, err)

	assert.Equal(t, true, fragment["sent"])
	assert.Equal(t, "lead@example.com", fragment["to"])
	assert.Equal(t, "Hi Dana", mailer.lastMessage.Subject)
	assert.Equal(t, "About spring cleaning", mailer.lastMessage.HTML)
}

func TestSendEmailExplicitRecipientWins(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	handler := actions.NewSendEmailHandler(mailer)

	fragment, err := handler.Execute(context.Background(), emailRequest(map[string]any{
		"to":      "owner@example.com",
		"subject": "s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", fragment["to"])
}

func TestSendEmailMissingRecipient(t *testing.T) {
	t.Parallel()

	handler := actions.NewSendEmailHandler(&fakeMailer{})

	req := emailRequest(map[string]any{"subject": "s"})
	req.Context.Contact = nil

	fragment, err := handler.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, false, fragment["sent"])
	assert.Equal(t, "missing recipient", fragment["reason"])
}

func TestSendEmailProviderErrorIsSoft(t *testing.T) {
	t.Parallel()

	handler := actions.NewSendEmailHandler(&fakeMailer{err: errors.New("smtp: connection refused")})

	fragment, err := handler.Execute(context.Background(), emailRequest(map[string]any{"subject": "s"}))
	require.NoError(t, err, "provider trouble must not fail the run")

	assert.Equal(t, false, fragment["sent"])
	assert.Equal(t, "smtp: connection refused", fragment["reason"])
}

func TestSendEmailNilMailerUnavailable(t *testing.T) {
	t.Parallel()

	handler := actions.NewSendEmailHandler(nil)

	fragment, err := handler.Execute(context.Background(), emailRequest(map[string]any{"subject": "s"}))
	require.NoError(t, err)

	assert.Equal(t, false, fragment["sent"])
	assert.Equal(t, true, fragment["unavailable"])
}

func TestSendEmailUsesSenderIdentity(t *testing.T) {
	t.Parallel()

	mailer := &fakeMailer{}
	handler := actions.NewSendEmailHandler(mailer)

	req := emailRequest(map[string]any{"subject": "s"})
	req.Settings = &models.AutomationSettings{
		OrganizationID: "org-1",
		Sender: models.SenderIdentity{
			FromEmail: "noreply@tenant.example",
			ReplyTo:   "owner@tenant.example",
		},
	}

	_, err := handler.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "noreply@tenant.example", mailer.lastMessage.From)
	assert.Equal(t, "owner@tenant.example", mailer.lastMessage.ReplyTo)
}
