package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
)

// MemoryPersistence is an in-memory persistence.Persistence for tests.
type MemoryPersistence struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	runs      map[string]*models.Run
	jobs      map[string]*models.ScheduledJob
	logs      map[string][]*models.LogEntry
	settings  map[string]*models.AutomationSettings
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		workflows: make(map[string]*models.Workflow),
		runs:      make(map[string]*models.Run),
		jobs:      make(map[string]*models.ScheduledJob),
		logs:      make(map[string][]*models.LogEntry),
		settings:  make(map[string]*models.AutomationSettings),
	}
}

func (m *MemoryPersistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workflows := make([]*models.Workflow, 0, len(m.workflows))
	for _, w := range m.workflows {
		workflows = append(workflows, w)
	}

	return workflows, nil
}

func (m *MemoryPersistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workflow, ok := m.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return workflow, nil
}

func (m *MemoryPersistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	m.workflows[workflow.ID] = workflow

	return nil
}

func (m *MemoryPersistence) RunByID(_ context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	copied := *run

	return &copied, nil
}

func (m *MemoryPersistence) RunByIdempotencyKey(_ context.Context, organizationID, key string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs {
		if run.OrganizationID == organizationID && run.IdempotencyKey == key {
			copied := *run

			return &copied, nil
		}
	}

	return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
}

func (m *MemoryPersistence) SaveRun(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	copied := *run
	m.runs[run.ID] = &copied

	return nil
}

func (m *MemoryPersistence) CreateScheduledJob(_ context.Context, job *models.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	copied := *job
	m.jobs[job.ID] = &copied

	return nil
}

func (m *MemoryPersistence) DueScheduledJobs(_ context.Context, now time.Time) ([]*models.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due := make([]*models.ScheduledJob, 0)

	for _, job := range m.jobs {
		if job.Due(now) {
			due = append(due, job)
		}
	}

	return due, nil
}

func (m *MemoryPersistence) MarkScheduledJob(_ context.Context, id string, status models.ScheduledJobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return persistence.ErrScheduledJobNotFound
	}

	job.Status = status

	return nil
}

func (m *MemoryPersistence) AppendLogEntry(_ context.Context, entry *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *entry
	m.logs[entry.RunID] = append(m.logs[entry.RunID], &copied)

	return nil
}

func (m *MemoryPersistence) LogEntriesByRun(_ context.Context, runID string) ([]*models.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*models.LogEntry(nil), m.logs[runID]...), nil
}

func (m *MemoryPersistence) SettingsByOrganization(_ context.Context, organizationID string) (*models.AutomationSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, ok := m.settings[organizationID]
	if !ok {
		return nil, persistence.ErrSettingsNotFound
	}

	return settings, nil
}

func (m *MemoryPersistence) SaveSettings(_ context.Context, settings *models.AutomationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[settings.OrganizationID] = settings

	return nil
}

func (m *MemoryPersistence) HealthCheck(_ context.Context) error {
	return nil
}

func (m *MemoryPersistence) Close(_ context.Context) error {
	return nil
}

// ScheduledJobs returns every stored job, for assertions.
func (m *MemoryPersistence) ScheduledJobs() []*models.ScheduledJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*models.ScheduledJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	return jobs
}
