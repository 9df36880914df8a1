package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
)

// RunRepository handles run ledger database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `
	id
  , workflow_id
  , organization_id
  , status
  , current_node_id
  , context
  , steps_completed
  , max_steps
  , started_at
  , paused_until
  , paused_at
  , idempotency_key
  , error
  , created_at
  , updated_at
  , completed_at
`

// GetByID returns a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// GetByIdempotencyKey returns the run a tenant already created for a key.
func (r *RunRepository) GetByIdempotencyKey(ctx context.Context, organizationID, key string) (*models.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		WHERE organization_id = $1 AND idempotency_key = $2
	`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, organizationID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByIdempotencyKey", key, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// Save upserts a run. The executor calls this after every processed node,
// so updates dominate inserts.
func (r *RunRepository) Save(ctx context.Context, run *models.Run) error {
	now := time.Now().UTC()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}

	run.UpdatedAt = now

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	contextJSON, err := json.Marshal(run.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal run context: %w", err)
	}

	query := `
		INSERT INTO runs (id, workflow_id, organization_id, status, current_node_id,
context, steps_completed, max_steps, started_at, paused_until, paused_at,
idempotency_key, error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_node_id = EXCLUDED.current_node_id,
			context = EXCLUDED.context,
			steps_completed = EXCLUDED.steps_completed,
			max_steps = EXCLUDED.max_steps,
			started_at = EXCLUDED.started_at,
			paused_until = EXCLUDED.paused_until,
			paused_at = EXCLUDED.paused_at,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.OrganizationID,
		run.Status,
		run.CurrentNodeID,
		contextJSON,
		run.StepsCompleted,
		run.MaxSteps,
		run.StartedAt,
		run.PausedUntil,
		run.PausedAt,
		nullableString(run.IdempotencyKey),
		run.Error,
		run.CreatedAt,
		run.UpdatedAt,
		run.CompletedAt,
	)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

func (r *RunRepository) scanRun(scanner interface {
	Scan(dest ...any) error
}) (*models.Run, error) {
	var (
		run            models.Run
		contextJSON    []byte
		idempotencyKey sql.NullString
	)

	err := scanner.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.OrganizationID,
		&run.Status,
		&run.CurrentNodeID,
		&contextJSON,
		&run.StepsCompleted,
		&run.MaxSteps,
		&run.StartedAt,
		&run.PausedUntil,
		&run.PausedAt,
		&idempotencyKey,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	run.IdempotencyKey = idempotencyKey.String

	if contextJSON != nil {
		err := json.Unmarshal(contextJSON, &run.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run context: %w", err)
		}
	}

	return &run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
