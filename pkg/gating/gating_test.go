package gating_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/pulse/pkg/gating"
	"github.com/pulsehq/pulse/pkg/models"
)

func weekdaySettings() *models.AutomationSettings {
	return &models.AutomationSettings{
		OrganizationID: "org-1",
		BusinessHours: models.BusinessHours{
			Enabled:  true,
			Start:    "09:00",
			End:      "17:00",
			Days:     []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			Timezone: "UTC",
		},
	}
}

func TestEvaluateBusinessHours(t *testing.T) {
	t.Parallel()

	// 2026-08-24 is a Monday.
	monday10 := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	monday8 := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	monday18 := time.Date(2026, 8, 24, 18, 0, 0, 0, time.UTC)
	saturday10 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		allowed  bool
		resumeAt time.Time
	}{
		{
			name:    "inside window",
			now:     monday10,
			allowed: true,
		},
		{
			name:     "before start waits for same-day opening",
			now:      monday8,
			resumeAt: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "after close waits for next business day",
			now:      monday18,
			resumeAt: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "saturday waits for monday morning",
			now:      saturday10,
			resumeAt: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision, err := gating.Evaluate(weekdaySettings(), tt.now)
			require.NoError(t, err)

			assert.Equal(t, tt.allowed, decision.Allowed)

			if !tt.allowed {
				assert.Equal(t, gating.ReasonBusinessHours, decision.Reason)
				assert.True(t, decision.ResumeAt.Equal(tt.resumeAt),
					"resume at %s, want %s", decision.ResumeAt, tt.resumeAt)
			}
		})
	}
}

func TestEvaluateQuietHours(t *testing.T) {
	t.Parallel()

	overnight := &models.AutomationSettings{
		OrganizationID: "org-1",
		QuietHours: models.QuietHours{
			Enabled: true,
			Start:   "21:00",
			End:     "08:00",
		},
	}

	tests := []struct {
		name     string
		now      time.Time
		allowed  bool
		resumeAt time.Time
	}{
		{
			name:    "daytime is allowed",
			now:     time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
			allowed: true,
		},
		{
			name:     "late evening waits for tomorrow morning",
			now:      time.Date(2026, 8, 24, 22, 30, 0, 0, time.UTC),
			resumeAt: time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "early morning waits for window end",
			now:      time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC),
			resumeAt: time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision, err := gating.Evaluate(overnight, tt.now)
			require.NoError(t, err)

			assert.Equal(t, tt.allowed, decision.Allowed)

			if !tt.allowed {
				assert.Equal(t, gating.ReasonQuietHours, decision.Reason)
				assert.True(t, decision.ResumeAt.Equal(tt.resumeAt),
					"resume at %s, want %s", decision.ResumeAt, tt.resumeAt)
			}
		})
	}
}

func TestEvaluateSameDayQuietWindow(t *testing.T) {
	t.Parallel()

	lunch := &models.AutomationSettings{
		OrganizationID: "org-1",
		QuietHours: models.QuietHours{
			Enabled: true,
			Start:   "12:00",
			End:     "14:00",
		},
	}

	decision, err := gating.Evaluate(lunch, time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC), decision.ResumeAt)

	decision, err = gating.Evaluate(lunch, time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateBusinessHoursBeforeQuietHours(t *testing.T) {
	t.Parallel()

	settings := weekdaySettings()
	settings.QuietHours = models.QuietHours{Enabled: true, Start: "21:00", End: "08:00"}

	// Saturday evening violates both. The business-hours pause wins.
	decision, err := gating.Evaluate(settings, time.Date(2026, 8, 29, 22, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, gating.ReasonBusinessHours, decision.Reason)
}

func TestEvaluateDisabledPolicies(t *testing.T) {
	t.Parallel()

	decision, err := gating.Evaluate(models.DefaultAutomationSettings("org-1"), time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = gating.Evaluate(nil, time.Now())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluateMalformedClock(t *testing.T) {
	t.Parallel()

	settings := weekdaySettings()
	settings.BusinessHours.Start = "9am"

	_, err := gating.Evaluate(settings, time.Now())
	assert.Error(t, err)
}

func TestEvaluateTimezone(t *testing.T) {
	t.Parallel()

	settings := weekdaySettings()
	settings.BusinessHours.Timezone = "America/New_York"

	// 14:00 UTC on a Monday is 10:00 in New York.
	decision, err := gating.Evaluate(settings, time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// 02:00 UTC on a Monday is Sunday 22:00 in New York.
	decision, err = gating.Evaluate(settings, time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}
