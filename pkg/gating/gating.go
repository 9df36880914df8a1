// Package gating decides whether an outbound-messaging node may execute now
// under a tenant's business-hours and quiet-hours policy, and computes the
// next allowed instant otherwise.
package gating

import (
	"fmt"
	"time"

	"github.com/pulsehq/pulse/pkg/models"
)

// Reasons recorded on scheduled jobs created by gating pauses.
const (
	ReasonBusinessHours = "business_hours"
	ReasonQuietHours    = "quiet_hours"
)

// Decision is the outcome of a gating check. When Allowed is false, ResumeAt
// is the first instant at which the node may run.
type Decision struct {
	Allowed  bool
	ResumeAt time.Time
	Reason   string
}

// Evaluate checks, in order: business hours (when enforced, outside the
// window or on a non-business day pauses until the next business day start),
// then quiet hours (inside the quiet window pauses until it ends). Malformed
// policy values are reported as errors; callers fail the run rather than
// guessing.
func Evaluate(settings *models.AutomationSettings, now time.Time) (Decision, error) {
	if settings == nil {
		return Decision{Allowed: true}, nil
	}

	loc, err := settings.Location()
	if err != nil {
		return Decision{}, err
	}

	local := now.In(loc)

	if settings.BusinessHours.Enabled {
		decision, err := evaluateBusinessHours(settings.BusinessHours, local)
		if err != nil {
			return Decision{}, err
		}

		if !decision.Allowed {
			return decision, nil
		}
	}

	if settings.QuietHours.Enabled {
		return evaluateQuietHours(settings.QuietHours, local)
	}

	return Decision{Allowed: true}, nil
}

func evaluateBusinessHours(hours models.BusinessHours, local time.Time) (Decision, error) {
	startHour, startMinute, err := models.ParseClock(hours.Start)
	if err != nil {
		return Decision{}, fmt.Errorf("business hours start: %w", err)
	}

	endHour, endMinute, err := models.ParseClock(hours.End)
	if err != nil {
		return Decision{}, fmt.Errorf("business hours end: %w", err)
	}

	dayStart := time.Date(local.Year(), local.Month(), local.Day(), startHour, startMinute, 0, 0, local.Location())
	dayEnd := time.Date(local.Year(), local.Month(), local.Day(), endHour, endMinute, 0, 0, local.Location())

	if isBusinessDay(hours.Days, local.Weekday()) && !local.Before(dayStart) && local.Before(dayEnd) {
		return Decision{Allowed: true}, nil
	}

	// Same-day start still ahead of us counts as the next window.
	if isBusinessDay(hours.Days, local.Weekday()) && local.Before(dayStart) {
		return Decision{ResumeAt: dayStart, Reason: ReasonBusinessHours}, nil
	}

	for offset := 1; offset <= 7; offset++ {
		candidate := dayStart.AddDate(0, 0, offset)
		if isBusinessDay(hours.Days, candidate.Weekday()) {
			return Decision{ResumeAt: candidate, Reason: ReasonBusinessHours}, nil
		}
	}

	return Decision{}, fmt.Errorf("business hours enabled but no business days configured")
}

func evaluateQuietHours(hours models.QuietHours, local time.Time) (Decision, error) {
	startHour, startMinute, err := models.ParseClock(hours.Start)
	if err != nil {
		return Decision{}, fmt.Errorf("quiet hours start: %w", err)
	}

	endHour, endMinute, err := models.ParseClock(hours.End)
	if err != nil {
		return Decision{}, fmt.Errorf("quiet hours end: %w", err)
	}

	quietStart := time.Date(local.Year(), local.Month(), local.Day(), startHour, startMinute, 0, 0, local.Location())
	quietEnd := time.Date(local.Year(), local.Month(), local.Day(), endHour, endMinute, 0, 0, local.Location())

	if quietStart.Before(quietEnd) {
		// Same-day window, e.g. 12:00-14:00.
		if !local.Before(quietStart) && local.Before(quietEnd) {
			return Decision{ResumeAt: quietEnd, Reason: ReasonQuietHours}, nil
		}

		return Decision{Allowed: true}, nil
	}

	// Window spans midnight, e.g. 21:00-08:00.
	switch {
	case !local.Before(quietStart):
		return Decision{ResumeAt: quietEnd.AddDate(0, 0, 1), Reason: ReasonQuietHours}, nil
	case local.Before(quietEnd):
		return Decision{ResumeAt: quietEnd, Reason: ReasonQuietHours}, nil
	default:
		return Decision{Allowed: true}, nil
	}
}

func isBusinessDay(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}

	return false
}
