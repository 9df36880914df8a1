package models

import "time"

// ScheduledJobStatus is the lifecycle state of a pending resume job.
type ScheduledJobStatus string

const (
	ScheduledJobStatusQueued    ScheduledJobStatus = "queued"
	ScheduledJobStatusProcessed ScheduledJobStatus = "processed"
	ScheduledJobStatusCancelled ScheduledJobStatus = "cancelled"
)

// ScheduledJob is a future resume point for a paused run, created by wait
// nodes and gating pauses. A time-driven consumer picks up due jobs and
// re-invokes the executor with {RunID, resume_from_node_id: NodeID}.
type ScheduledJob struct {
	ID        string             `json:"id"`
	RunID     string             `json:"run_id"  validate:"required"`
	NodeID    string             `json:"node_id" validate:"required"` // node to resume on
	Reason    string             `json:"reason,omitempty"`            // wait, business_hours, quiet_hours, rate_limit
	Status    ScheduledJobStatus `json:"status"`
	ExecuteAt time.Time          `json:"execute_at"`
	CreatedAt time.Time          `json:"created_at"`
}

// Due reports whether the job should be dispatched at the given instant.
func (j *ScheduledJob) Due(now time.Time) bool {
	return j.Status == ScheduledJobStatusQueued && !j.ExecuteAt.After(now)
}
