// Package audit writes the append-only per-step log of a run. Entries are
// for operators and the dashboard; the executor never reads them back.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pulsehq/pulse/pkg/models"
)

// Sink is the narrow persistence surface the logger needs.
type Sink interface {
	AppendLogEntry(ctx context.Context, entry *models.LogEntry) error
}

type Logger struct {
	sink   Sink
	logger *slog.Logger
}

func NewLogger(sink Sink, logger *slog.Logger) *Logger {
	return &Logger{sink: sink, logger: logger}
}

// Log appends one entry. A sink failure is reported on the process log and
// otherwise swallowed: audit trouble must never fail a run.
func (l *Logger) Log(ctx context.Context, runID, nodeID string, level models.LogLevel, message string, data map[string]any) {
	entry := &models.LogEntry{
		ID:        uuid.New().String(),
		RunID:     runID,
		NodeID:    nodeID,
		Level:     level,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.sink.AppendLogEntry(ctx, entry); err != nil {
		l.logger.ErrorContext(ctx, "failed to append audit log entry",
			"run_id", runID, "node_id", nodeID, "error", err)
	}
}

func (l *Logger) Info(ctx context.Context, runID, nodeID, message string, data map[string]any) {
	l.Log(ctx, runID, nodeID, models.LogLevelInfo, message, data)
}

func (l *Logger) Warn(ctx context.Context, runID, nodeID, message string, data map[string]any) {
	l.Log(ctx, runID, nodeID, models.LogLevelWarn, message, data)
}

func (l *Logger) Error(ctx context.Context, runID, nodeID, message string, data map[string]any) {
	l.Log(ctx, runID, nodeID, models.LogLevelError, message, data)
}
