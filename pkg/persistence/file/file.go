// Package file provides file-based persistence for local development. Each
// entity is one JSON document under the root directory; a single mutex
// serializes writers, which is enough for a dev setup and for tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements the persistence.Persistence interface on the file
// system.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a file persistence layer rooted at the given
// directory. Accepts plain paths and file:// URLs.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. Nothing to release for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Workflows returns all workflows, newest first.
func (fp *Persistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	err := fp.readAll("workflows", func(data []byte) error {
		var workflow models.Workflow
		if err := json.Unmarshal(data, &workflow); err != nil {
			return err
		}

		if workflow.DeletedAt == nil {
			workflows = append(workflows, &workflow)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID returns a workflow by its ID.
func (fp *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := fp.read("workflows", id, &workflow)
	if err != nil {
		return nil, err
	}

	if !found || workflow.DeletedAt != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// SaveWorkflow writes a workflow document.
func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return fp.write("workflows", workflow.ID, workflow)
}

// RunByID returns a run by its ID.
func (fp *Persistence) RunByID(_ context.Context, id string) (*models.Run, error) {
	var run models.Run

	found, err := fp.read("runs", id, &run)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	return &run, nil
}

// RunByIdempotencyKey scans the run directory for a tenant's key. Linear,
// acceptable for development volumes.
func (fp *Persistence) RunByIdempotencyKey(_ context.Context, organizationID, key string) (*models.Run, error) {
	var match *models.Run

	err := fp.readAll("runs", func(data []byte) error {
		var run models.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}

		if run.OrganizationID == organizationID && run.IdempotencyKey == key {
			match = &run
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if match == nil {
		return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
	}

	return match, nil
}

// SaveRun writes a run document.
func (fp *Persistence) SaveRun(_ context.Context, run *models.Run) error {
	now := time.Now().UTC()

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	return fp.write("runs", run.ID, run)
}

// CreateScheduledJob writes a resume job document.
func (fp *Persistence) CreateScheduledJob(_ context.Context, job *models.ScheduledJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	return fp.write("scheduled_jobs", job.ID, job)
}

// DueScheduledJobs returns queued jobs whose execute_at has passed, oldest
// first.
func (fp *Persistence) DueScheduledJobs(_ context.Context, now time.Time) ([]*models.ScheduledJob, error) {
	jobs := make([]*models.ScheduledJob, 0)

	err := fp.readAll("scheduled_jobs", func(data []byte) error {
		var job models.ScheduledJob
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}

		if job.Due(now) {
			jobs = append(jobs, &job)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ExecuteAt.Before(jobs[j].ExecuteAt)
	})

	return jobs, nil
}

// MarkScheduledJob updates a job's status.
func (fp *Persistence) MarkScheduledJob(ctx context.Context, id string, status models.ScheduledJobStatus) error {
	var job models.ScheduledJob

	found, err := fp.read("scheduled_jobs", id, &job)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrScheduledJobNotFound
	}

	job.Status = status

	return fp.write("scheduled_jobs", id, &job)
}

// AppendLogEntry writes one audit entry.
func (fp *Persistence) AppendLogEntry(_ context.Context, entry *models.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return fp.write(filepath.Join("run_logs", entry.RunID), entry.ID, entry)
}

// LogEntriesByRun returns a run's audit log in insertion order.
func (fp *Persistence) LogEntriesByRun(_ context.Context, runID string) ([]*models.LogEntry, error) {
	entries := make([]*models.LogEntry, 0)

	err := fp.readAll(filepath.Join("run_logs", runID), func(data []byte) error {
		var entry models.LogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}

		entries = append(entries, &entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

// SettingsByOrganization returns a tenant's automation settings.
func (fp *Persistence) SettingsByOrganization(_ context.Context, organizationID string) (*models.AutomationSettings, error) {
	var settings models.AutomationSettings

	found, err := fp.read("settings", organizationID, &settings)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrSettingsNotFound
	}

	return &settings, nil
}

// SaveSettings writes a tenant's automation settings.
func (fp *Persistence) SaveSettings(_ context.Context, settings *models.AutomationSettings) error {
	settings.UpdatedAt = time.Now().UTC()

	return fp.write("settings", settings.OrganizationID, settings)
}

func (fp *Persistence) write(dir, id string, value any) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	target := filepath.Join(fp.root, dir)

	if err := os.MkdirAll(target, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", target, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	path := filepath.Join(target, id+".json")

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}

	return nil
}

func (fp *Persistence) read(dir, id string, dest any) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	path := filepath.Join(fp.root, dir, id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal document %s: %w", path, err)
	}

	return true, nil
}

func (fp *Persistence) readAll(dir string, visit func(data []byte) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	target := filepath.Join(fp.root, dir)

	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}

	root := os.DirFS(target)

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list documents in %s: %w", target, err)
	}

	for _, file := range jsonFiles {
		data, err := os.ReadFile(filepath.Join(target, file))
		if err != nil {
			return fmt.Errorf("failed to read document %s: %w", file, err)
		}

		if err := visit(data); err != nil {
			return fmt.Errorf("failed to decode document %s: %w", file, err)
		}
	}

	return nil
}
