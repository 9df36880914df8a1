// Package persistence provides the data storage abstraction for workflows,
// runs, scheduled jobs, audit logs and tenant settings.
package persistence

import (
	"context"
	"time"

	"github.com/pulsehq/pulse/pkg/models"
)

type Persistence interface {
	// Workflow graph store. Graphs are written by the site builder and
	// read-only during execution.
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error

	// Run ledger.
	RunByID(ctx context.Context, id string) (*models.Run, error)
	RunByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.Run, error)
	SaveRun(ctx context.Context, run *models.Run) error

	// Scheduled resume jobs.
	CreateScheduledJob(ctx context.Context, job *models.ScheduledJob) error
	DueScheduledJobs(ctx context.Context, now time.Time) ([]*models.ScheduledJob, error)
	MarkScheduledJob(ctx context.Context, id string, status models.ScheduledJobStatus) error

	// Append-only audit log. The executor writes, the dashboard reads.
	AppendLogEntry(ctx context.Context, entry *models.LogEntry) error
	LogEntriesByRun(ctx context.Context, runID string) ([]*models.LogEntry, error)

	// Tenant automation policy.
	SettingsByOrganization(ctx context.Context, organizationID string) (*models.AutomationSettings, error)
	SaveSettings(ctx context.Context, settings *models.AutomationSettings) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
