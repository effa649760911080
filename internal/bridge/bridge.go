package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-automation/internal/item"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Logger is the logging interface used by the bridge.
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

// Transport is the MQTT client surface the bridge needs. *mqtt.Client
// satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// EventPoster posts inbound events onto the bus. *event.Bus satisfies it.
type EventPoster interface {
	PostUpdate(item string, state types.State)
	PostCommand(item string, command types.Command)
}

// ItemLookup resolves the protocol an outbound command is addressed to.
type ItemLookup interface {
	GetItem(name string) (*item.Item, error)
}

// CommandMessage is the payload sent to protocol bridges.
type CommandMessage struct {
	ID        string        `json:"id"`
	Item      string        `json:"item"`
	Command   types.Command `json:"command"`
	Timestamp string        `json:"timestamp"`
}

// StateMessage is the retained payload of an item's core state topic.
type StateMessage struct {
	Item      string      `json:"item"`
	State     types.State `json:"state"`
	Timestamp string      `json:"timestamp"`
}

// Bridge moves events between the bus and MQTT. Subscribe it to the bus
// for outbound traffic and call Start for inbound traffic.
type Bridge struct {
	transport Transport
	poster    EventPoster
	items     ItemLookup
	qos       byte
	logger    Logger
	now       func() time.Time

	mu      sync.Mutex
	started bool
}

// New creates a bridge publishing and subscribing with the given QoS.
func New(transport Transport, poster EventPoster, items ItemLookup, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		transport: transport,
		poster:    poster,
		items:     items,
		qos:       qos,
		logger:    logger,
		now:       time.Now,
	}
}

// Start subscribes to bridge state reports and core command requests.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	topics := mqtt.Topics{}
	if err := b.transport.Subscribe(topics.AllBridgeStates(), b.qos, b.handleState); err != nil {
		return fmt.Errorf("subscribing to bridge states: %w", err)
	}
	if err := b.transport.Subscribe(topics.AllCoreItemCommands(), b.qos, b.handleCommand); err != nil {
		_ = b.transport.Unsubscribe(topics.AllBridgeStates()) //nolint:errcheck // best effort
		return fmt.Errorf("subscribing to item commands: %w", err)
	}

	b.started = true
	b.logger.Info("mqtt bridge started")
	return nil
}

// Stop removes the inbound subscriptions. Stopping a stopped bridge is a
// no-op.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	b.started = false

	topics := mqtt.Topics{}
	return errors.Join(
		b.transport.Unsubscribe(topics.AllBridgeStates()),
		b.transport.Unsubscribe(topics.AllCoreItemCommands()),
	)
}

func (b *Bridge) handleState(topic string, payload []byte) error {
	protocol, name, ok := mqtt.ParseBridgeState(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	state, err := decodeValue(payload, fieldState)
	if err != nil {
		return fmt.Errorf("state for %s: %w", name, err)
	}

	b.logger.Debug("bridge state received", "protocol", protocol, "item", name, "state", types.Format(state))
	b.poster.PostUpdate(name, state)
	return nil
}

func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name, ok := mqtt.ParseCoreItemCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	command, err := decodeValue(payload, fieldCommand)
	if err != nil {
		return fmt.Errorf("command for %s: %w", name, err)
	}

	b.logger.Debug("mqtt command received", "item", name, "command", types.Format(command))
	b.poster.PostCommand(name, command)
	return nil
}

// ReceiveCommand implements event.CommandSubscriber by forwarding the
// command to the protocol bridge that owns the item.
func (b *Bridge) ReceiveCommand(ev event.CommandEvent) error {
	protocol := string(item.ProtocolVirtual)
	if it, err := b.items.GetItem(ev.ItemName()); err == nil {
		protocol = string(it.Protocol())
	}

	msg := CommandMessage{
		ID:        uuid.NewString(),
		Item:      ev.ItemName(),
		Command:   ev.Command(),
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding command for %s: %w", ev.ItemName(), err)
	}

	topic := mqtt.Topics{}.BridgeCommand(protocol, ev.ItemName())
	if err := b.transport.Publish(topic, data, b.qos, false); err != nil {
		return fmt.Errorf("publishing command for %s: %w", ev.ItemName(), err)
	}
	return nil
}

// ReceiveUpdate implements event.StateSubscriber by publishing the state
// retained on the item's core state topic.
func (b *Bridge) ReceiveUpdate(ev event.StateEvent) error {
	data, err := json.Marshal(StateMessage{
		Item:      ev.ItemName(),
		State:     ev.State(),
		Timestamp: b.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", ev.ItemName(), err)
	}

	if err := b.transport.Publish(mqtt.Topics{}.CoreItemState(ev.ItemName()), data, b.qos, true); err != nil {
		return fmt.Errorf("publishing state for %s: %w", ev.ItemName(), err)
	}
	return nil
}
