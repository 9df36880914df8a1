package models

import (
	"fmt"
	"time"
)

// BusinessHours is the tenant window inside which outbound messaging may
// run. Start and End are "15:04" clock values in the settings timezone.
type BusinessHours struct {
	Enabled  bool           `json:"enabled"`
	Start    string         `json:"start,omitempty" validate:"omitempty,len=5"`
	End      string         `json:"end,omitempty"   validate:"omitempty,len=5"`
	Days     []time.Weekday `json:"days,omitempty"`
	Timezone string         `json:"timezone,omitempty"`
}

// QuietHours is the window inside which outbound messaging must not run.
// The window may span midnight (e.g. 21:00 to 08:00).
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty" validate:"omitempty,len=5"`
	End     string `json:"end,omitempty"   validate:"omitempty,len=5"`
}

// RateLimits bounds outbound messaging volume per tenant.
type RateLimits struct {
	MaxMessagesPerHour int `json:"max_messages_per_hour,omitempty"`
}

// SenderIdentity carries the tenant's configured outbound identity.
type SenderIdentity struct {
	FromName  string `json:"from_name,omitempty"`
	FromEmail string `json:"from_email,omitempty" validate:"omitempty,email"`
	ReplyTo   string `json:"reply_to,omitempty"   validate:"omitempty,email"`
	SMSNumber string `json:"sms_number,omitempty"`
}

// AutomationSettings is the per-tenant policy the gating evaluator and the
// messaging actions read. It is owned by tenant configuration; the runtime
// never writes it.
type AutomationSettings struct {
	OrganizationID string         `json:"organization_id" validate:"required"`
	BusinessHours  BusinessHours  `json:"business_hours"`
	QuietHours     QuietHours     `json:"quiet_hours"`
	RateLimits     RateLimits     `json:"rate_limits"`
	Sender         SenderIdentity `json:"sender"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DefaultAutomationSettings returns settings with all enforcement disabled,
// used when a tenant has not configured any policy.
func DefaultAutomationSettings(organizationID string) *AutomationSettings {
	return &AutomationSettings{OrganizationID: organizationID}
}

// Location resolves the settings timezone, defaulting to UTC.
func (s *AutomationSettings) Location() (*time.Location, error) {
	if s.BusinessHours.Timezone == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(s.BusinessHours.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.BusinessHours.Timezone, err)
	}

	return loc, nil
}

// ParseClock parses a "15:04" clock value.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}

	return t.Hour(), t.Minute(), nil
}
