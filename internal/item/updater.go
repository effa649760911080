package item

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/event"
)

// stateWriteTimeout bounds the repository write behind one state event.
const stateWriteTimeout = 5 * time.Second

// Updater applies state events from the bus to the registry.
type Updater struct {
	registry *Registry
	logger   Logger
}

// NewUpdater creates an updater. Subscribe it with Bus.SubscribeState.
func NewUpdater(registry *Registry, logger Logger) *Updater {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Updater{registry: registry, logger: logger}
}

// ReceiveUpdate implements event.StateSubscriber. Events for unknown items
// are ignored.
func (u *Updater) ReceiveUpdate(ev event.StateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), stateWriteTimeout)
	defer cancel()

	err := u.registry.SetItemState(ctx, ev.ItemName(), ev.State())
	if errors.Is(err, ErrItemNotFound) {
		u.logger.Debug("state update for unknown item ignored", "item", ev.ItemName())
		return nil
	}
	return err
}
