// Package audit records workflow run events: connections opened,
// transactions resolved, cleanup outcomes. Events fan out to subscribers
// and to the structured log, with credential-bearing fields redacted.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the workflow runner.
const (
	EventRunStarted   = "run_started"
	EventStepDone     = "step_done"
	EventStepFailed   = "step_failed"
	EventConnOpened   = "connection_opened"
	EventTxCommitted  = "tx_committed"
	EventTxRolledBack = "tx_rolled_back"
	EventTxIndeterm   = "tx_indeterminate"
	EventRunFinished  = "run_finished"
)

// Event is one audit record for a workflow run.
type Event struct {
	ID     string         `json:"id"`
	RunID  string         `json:"run_id"`
	Type   string         `json:"type"`
	Alias  string         `json:"alias,omitempty"`
	Step   string         `json:"step,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
	Time   time.Time      `json:"time"`
}

// Logger redacts and records events. The bus is optional (nil-safe).
type Logger struct {
	bus *Bus
	log *slog.Logger
}

// NewLogger creates an audit Logger. A nil slog logger falls back to the
// default.
func NewLogger(bus *Bus, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{bus: bus, log: log}
}

// Record stamps, redacts, logs, and publishes an event.
func (l *Logger) Record(ev *Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	ev.Detail = Redact(ev.Detail)

	level := slog.LevelInfo
	switch ev.Type {
	case EventStepFailed, EventTxRolledBack:
		level = slog.LevelWarn
	case EventTxIndeterm:
		// Rollback itself failed; the backing store may be indeterminate.
		level = slog.LevelError
	}
	l.log.Log(context.Background(), level, "audit",
		"type", ev.Type, "run", ev.RunID, "alias", ev.Alias, "step", ev.Step, "detail", ev.Detail)

	if l.bus != nil {
		l.bus.Publish(ev)
	}
}
