package engine

import "time"

// OutcomeKind classifies what an invocation decided about a run.
type OutcomeKind string

const (
	// OutcomeContinue means the batch limit was reached with the run still
	// in flight; the caller re-invokes with ResumeFromNodeID.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomePaused means the run was suspended (wait node, gating or rate
	// limit) with a scheduled job owning the resume.
	OutcomePaused OutcomeKind = "paused"
	// OutcomeDone means the run reached a terminal status.
	OutcomeDone OutcomeKind = "done"
)

// Outcome tells the caller how to proceed after a batch. How a Continue is
// re-triggered (queue message, timer, direct loop in a long-lived process)
// is an infrastructure choice outside the engine.
type Outcome struct {
	Kind             OutcomeKind
	ResumeFromNodeID string
	ResumeAt         time.Time
	Reason           string // set on a pause: "wait", "business_hours", "quiet_hours" or "rate_limit"
}
