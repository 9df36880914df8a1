package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
)

// ScheduledJobRepository handles resume job database operations.
type ScheduledJobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewScheduledJobRepository creates a new scheduled job repository.
func NewScheduledJobRepository(db *sql.DB, logger *slog.Logger) *ScheduledJobRepository {
	return &ScheduledJobRepository{db: db, logger: logger}
}

// Create persists a queued resume job.
func (r *ScheduledJobRepository) Create(ctx context.Context, job *models.ScheduledJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scheduled_jobs (id, run_id, node_id, reason, status, execute_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.RunID,
		job.NodeID,
		job.Reason,
		job.Status,
		job.ExecuteAt,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled job: %w", err)
	}

	return nil
}

// Due returns queued jobs whose execute_at has passed, oldest first.
func (r *ScheduledJobRepository) Due(ctx context.Context, now time.Time) ([]*models.ScheduledJob, error) {
	query := `
		SELECT id, run_id, node_id, reason, status, execute_at, created_at
		FROM scheduled_jobs
		WHERE status = 'queued' AND execute_at <= $1
		ORDER BY execute_at
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due scheduled jobs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	jobs := make([]*models.ScheduledJob, 0)

	for rows.Next() {
		var job models.ScheduledJob

		err := rows.Scan(
			&job.ID,
			&job.RunID,
			&job.NodeID,
			&job.Reason,
			&job.Status,
			&job.ExecuteAt,
			&job.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled job: %w", err)
		}

		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled jobs: %w", err)
	}

	return jobs, nil
}

// Mark updates a job's status.
func (r *ScheduledJobRepository) Mark(ctx context.Context, id string, status models.ScheduledJobStatus) error {
	query := `UPDATE scheduled_jobs SET status = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to mark scheduled job %s: %w", id, err)
	}

	return nil
}
