package models

import "time"

// LogLevel classifies an audit log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is an append-only per-step audit record. Entries are never
// mutated and never read back by the executor; they exist for the dashboard
// and for debugging.
type LogEntry struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id" validate:"required"`
	NodeID    string         `json:"node_id,omitempty"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
