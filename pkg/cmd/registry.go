package cmd

import (
	"log/slog"

	"github.com/pulsehq/pulse/pkg/actions"
	"github.com/pulsehq/pulse/pkg/registry"
)

// NewRegistry builds the handler registry with the default collaborator set:
// log-backed messaging and CRM providers plus a real HTTP caller. Production
// deployments swap the log providers for the platform's integrations.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	collab := actions.Collaborators{
		Mailer:    &actions.LogMailer{Logger: logger},
		Messenger: &actions.LogMessenger{Logger: logger},
		CRM:       &actions.LogCRM{Logger: logger},
		HTTP:      actions.NewDefaultHTTPCaller(),
	}

	return registry.Default(logger, collab)
}
