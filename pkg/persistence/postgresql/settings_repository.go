package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsehq/pulse/pkg/models"
	"github.com/pulsehq/pulse/pkg/persistence"
)

// SettingsRepository handles tenant automation settings database operations.
type SettingsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sql.DB, logger *slog.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// ByOrganization returns a tenant's automation settings.
func (r *SettingsRepository) ByOrganization(ctx context.Context, organizationID string) (*models.AutomationSettings, error) {
	query := `
		SELECT organization_id, business_hours, quiet_hours, rate_limits, sender, updated_at
		FROM automation_settings
		WHERE organization_id = $1
	`

	var (
		settings                                                     models.AutomationSettings
		businessHoursJSON, quietHoursJSON, rateLimitsJSON, senderJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, organizationID).Scan(
		&settings.OrganizationID,
		&businessHoursJSON,
		&quietHoursJSON,
		&rateLimitsJSON,
		&senderJSON,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSettingsNotFound
		}

		return nil, fmt.Errorf("failed to query automation settings: %w", err)
	}

	fields := []struct {
		raw  []byte
		dest any
	}{
		{businessHoursJSON, &settings.BusinessHours},
		{quietHoursJSON, &settings.QuietHours},
		{rateLimitsJSON, &settings.RateLimits},
		{senderJSON, &settings.Sender},
	}

	for _, f := range fields {
		if f.raw == nil {
			continue
		}

		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal automation settings: %w", err)
		}
	}

	return &settings, nil
}

// Save upserts a tenant's automation settings.
func (r *SettingsRepository) Save(ctx context.Context, settings *models.AutomationSettings) error {
	settings.UpdatedAt = time.Now().UTC()

	businessHoursJSON, err := json.Marshal(settings.BusinessHours)
	if err != nil {
		return fmt.Errorf("failed to marshal business hours: %w", err)
	}

	quietHoursJSON, err := json.Marshal(settings.QuietHours)
	if err != nil {
		return fmt.Errorf("failed to marshal quiet hours: %w", err)
	}

	rateLimitsJSON, err := json.Marshal(settings.RateLimits)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limits: %w", err)
	}

	senderJSON, err := json.Marshal(settings.Sender)
	if err != nil {
		return fmt.Errorf("failed to marshal sender identity: %w", err)
	}

	query := `
		INSERT INTO automation_settings (organization_id, business_hours, quiet_hours, rate_limits, sender, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id) DO UPDATE SET
			business_hours = EXCLUDED.business_hours,
			quiet_hours = EXCLUDED.quiet_hours,
			rate_limits = EXCLUDED.rate_limits,
			sender = EXCLUDED.sender,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		settings.OrganizationID,
		businessHoursJSON,
		quietHoursJSON,
		rateLimitsJSON,
		senderJSON,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation settings: %w", err)
	}

	return nil
}
