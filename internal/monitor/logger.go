package monitor

import (
	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Logger is the logging interface used by the monitor package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventLogger logs every command and state event it receives at info.
type EventLogger struct {
	logger Logger
}

// NewEventLogger creates an event logger. A nil logger discards output.
func NewEventLogger(logger Logger) *EventLogger {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventLogger{logger: logger}
}

// ReceiveCommand implements event.CommandSubscriber.
func (l *EventLogger) ReceiveCommand(ev event.CommandEvent) error {
	l.logger.Info("item received command",
		"item", ev.ItemName(),
		"command", types.Format(ev.Command()),
	)
	return nil
}

// ReceiveUpdate implements event.StateSubscriber.
func (l *EventLogger) ReceiveUpdate(ev event.StateEvent) error {
	l.logger.Info("item state updated",
		"item", ev.ItemName(),
		"state", types.Format(ev.State()),
	)
	return nil
}
