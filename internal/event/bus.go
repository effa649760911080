package event

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel/metric"

	"github.com/nerrad567/gray-logic-automation/internal/scheduler"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// JobSubmitter runs asynchronous deliveries. Implemented by
// *scheduler.Scheduler.
type JobSubmitter interface {
	Submit(job scheduler.Job) error
}

// Bus delivers events to command and state subscribers.
//
// Thread Safety: all methods are safe for concurrent use, including from
// inside a subscriber callback.
type Bus struct {
	jobs    JobSubmitter
	logger  Logger
	metrics *busMetrics

	commandSubs Listeners[CommandSubscriber]
	stateSubs   Listeners[StateSubscriber]
}

// Option configures a Bus.
type Option func(*Bus)

// WithMeter records bus metrics on meter. Without it metrics are discarded.
func WithMeter(meter metric.Meter) Option {
	return func(b *Bus) {
		m, err := newBusMetrics(meter)
		if err != nil {
			b.logger.Warn("event bus metrics unavailable", "error", err)
			return
		}
		b.metrics = m
	}
}

// NewBus creates a bus whose asynchronous deliveries run on jobs.
func NewBus(jobs JobSubmitter, logger Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	b := &Bus{
		jobs:    jobs,
		logger:  logger,
		metrics: noopBusMetrics(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubscribeCommand registers s for command events. Registering the same
// subscriber twice has no effect.
func (b *Bus) SubscribeCommand(s CommandSubscriber) error {
	_, err := b.commandSubs.Add(s)
	return err
}

// UnsubscribeCommand removes s. Unknown subscribers are ignored.
func (b *Bus) UnsubscribeCommand(s CommandSubscriber) {
	b.commandSubs.Remove(s)
}

// SubscribeState registers s for state events. Registering the same
// subscriber twice has no effect.
func (b *Bus) SubscribeState(s StateSubscriber) error {
	_, err := b.stateSubs.Add(s)
	return err
}

// UnsubscribeState removes s. Unknown subscribers are ignored.
func (b *Bus) UnsubscribeState(s StateSubscriber) {
	b.stateSubs.Remove(s)
}

// PublishAsync hands ev to the scheduler and returns immediately. If the
// scheduler rejects the delivery, the event is logged and dropped.
func (b *Bus) PublishAsync(ev Event) {
	if ev == nil {
		return
	}
	b.metrics.recordPublished(ev.Kind(), "async")

	if b.jobs == nil {
		b.logger.Error("event dropped: no scheduler", "event", ev.String())
		return
	}

	err := b.jobs.Submit(func(context.Context) {
		b.deliver(ev)
	})
	if err != nil {
		b.logger.Error("event dropped", "event", ev.String(), "error", err)
	}
}

// PublishSync delivers ev on the calling goroutine and returns once every
// subscriber has been invoked.
func (b *Bus) PublishSync(ev Event) {
	if ev == nil {
		return
	}
	b.metrics.recordPublished(ev.Kind(), "sync")
	b.deliver(ev)
}

// PostUpdate publishes a state event asynchronously.
func (b *Bus) PostUpdate(item string, state types.State) {
	b.PublishAsync(NewStateEvent(item, state))
}

// PostCommand publishes a command event asynchronously.
func (b *Bus) PostCommand(item string, command types.Command) {
	b.PublishAsync(NewCommandEvent(item, command))
}

// SendCommand publishes a command event synchronously.
func (b *Bus) SendCommand(item string, command types.Command) {
	b.PublishSync(NewCommandEvent(item, command))
}

// deliver is the only place events are dispatched to subscribers.
func (b *Bus) deliver(ev Event) {
	switch e := ev.(type) {
	case CommandEvent:
		for _, s := range b.commandSubs.Snapshot() {
			b.notify(e, s, func() error { return s.ReceiveCommand(e) })
		}
	case StateEvent:
		for _, s := range b.stateSubs.Snapshot() {
			b.notify(e, s, func() error { return s.ReceiveUpdate(e) })
		}
	default:
		b.logger.Error("unsupported event type", "type", fmt.Sprintf("%T", ev))
	}
}

// notify invokes one subscriber, isolating the bus from its failures.
func (b *Bus) notify(ev Event, subscriber any, call func() error) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.recordFailure(ev.Kind())
			b.logger.Error("event subscriber panicked",
				"subscriber", fmt.Sprintf("%T", subscriber),
				"event", ev.String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := call(); err != nil {
		b.metrics.recordFailure(ev.Kind())
		b.logger.Error("event subscriber failed",
			"subscriber", fmt.Sprintf("%T", subscriber),
			"event", ev.String(),
			"error", err,
		)
	}
}
