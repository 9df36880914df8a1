// Package postgresql provides PostgreSQL persistence for workflows, runs,
// scheduled jobs, audit logs and tenant settings.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
	jobRepo      *ScheduledJobRepository
	logRepo      *LogRepository
	settingsRepo *SettingsRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		runRepo:      NewRunRepository(database, logger),
		jobRepo:      NewScheduledJobRepository(database, logger),
		logRepo:      NewLogRepository(database, logger),
		settingsRepo: NewSettingsRepository(database, logger),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Workflows returns all workflows from the database.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx)
}

// WorkflowByID returns a workflow by its ID.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

// SaveWorkflow saves a workflow to the database.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

// RunByID returns a run by its ID.
func (p *Persistence) RunByID(ctx context.Context, id string) (*models.Run, error) {
	return p.runRepo.GetByID(ctx, id)
}

// RunByIdempotencyKey returns the run created for a tenant's idempotency key.
func (p *Persistence) RunByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.Run, error) {
	return p.runRepo.GetByIdempotencyKey(ctx, organizationID, key)
}

// SaveRun saves a run to the database.
func (p *Persistence) SaveRun(ctx context.Context, run *models.Run) error {
	return p.runRepo.Save(ctx, run)
}

// CreateScheduledJob persists a future resume job.
func (p *Persistence) CreateScheduledJob(ctx context.Context, job *models.ScheduledJob) error {
	return p.jobRepo.Create(ctx, job)
}

// DueScheduledJobs returns queued jobs whose execute_at has passed.
func (p *Persistence) DueScheduledJobs(ctx context.Context, now time.Time) ([]*models.ScheduledJob, error) {
	return p.jobRepo.Due(ctx, now)
}

// MarkScheduledJob updates a job's status.
func (p *Persistence) MarkScheduledJob(ctx context.Context, id string, status models.ScheduledJobStatus) error {
	return p.jobRepo.Mark(ctx, id, status)
}

// AppendLogEntry writes an audit log record.
func (p *Persistence) AppendLogEntry(ctx context.Context, entry *models.LogEntry) error {
	return p.logRepo.Append(ctx, entry)
}

// LogEntriesByRun returns a run's audit log in insertion order.
func (p *Persistence) LogEntriesByRun(ctx context.Context, runID string) ([]*models.LogEntry, error) {
	return p.logRepo.ByRun(ctx, runID)
}

// SettingsByOrganization returns a tenant's automation settings.
func (p *Persistence) SettingsByOrganization(ctx context.Context, organizationID string) (*models.AutomationSettings, error) {
	return p.settingsRepo.ByOrganization(ctx, organizationID)
}

// SaveSettings upserts a tenant's automation settings.
func (p *Persistence) SaveSettings(ctx context.Context, settings *models.AutomationSettings) error {
	return p.settingsRepo.Save(ctx, settings)
}
