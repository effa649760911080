package event

import (
	"fmt"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Kind distinguishes the two event variants.
type Kind string

// Event kinds.
const (
	KindCommand Kind = "command"
	KindState   Kind = "state"
)

// Event is either a CommandEvent or a StateEvent. The set of variants is
// closed: the unexported method keeps other packages from adding more.
type Event interface {
	Kind() Kind
	ItemName() string
	String() string

	isEvent()
}

// CommandEvent asks an item to perform a command.
type CommandEvent struct {
	item    string
	command types.Command
}

// NewCommandEvent creates a command event for the named item.
func NewCommandEvent(item string, command types.Command) CommandEvent {
	return CommandEvent{item: item, command: command}
}

func (e CommandEvent) Kind() Kind             { return KindCommand }
func (e CommandEvent) ItemName() string       { return e.item }
func (e CommandEvent) Command() types.Command { return e.command }
func (CommandEvent) isEvent()                 {}

func (e CommandEvent) String() string {
	return fmt.Sprintf("%s received command %s", e.item, types.Format(e.command))
}

// StateEvent reports a new state for an item.
type StateEvent struct {
	item  string
	state types.State
}

// NewStateEvent creates a state event for the named item.
func NewStateEvent(item string, state types.State) StateEvent {
	return StateEvent{item: item, state: state}
}

func (e StateEvent) Kind() Kind         { return KindState }
func (e StateEvent) ItemName() string   { return e.item }
func (e StateEvent) State() types.State { return e.state }
func (StateEvent) isEvent()             {}

func (e StateEvent) String() string {
	return fmt.Sprintf("%s state updated to %s", e.item, types.Format(e.state))
}

// CommandSubscriber receives command events.
type CommandSubscriber interface {
	ReceiveCommand(ev CommandEvent) error
}

// StateSubscriber receives state events.
type StateSubscriber interface {
	ReceiveUpdate(ev StateEvent) error
}
