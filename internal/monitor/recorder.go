package monitor

import (
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// StateWriter stores one numeric sample of an item's state.
// *influxdb.Client satisfies it.
type StateWriter interface {
	WriteItemState(item string, value float64, at time.Time)
}

// Recorder writes numeric states to a StateWriter. Binary states are
// recorded as 1 (ON, OPEN) and 0 (OFF, CLOSED); other values, such as free
// text, are skipped.
type Recorder struct {
	writer StateWriter
	logger Logger
	now    func() time.Time
}

// NewRecorder creates a recorder. A nil logger discards output.
func NewRecorder(writer StateWriter, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{writer: writer, logger: logger, now: time.Now}
}

// ReceiveUpdate implements event.StateSubscriber.
func (r *Recorder) ReceiveUpdate(ev event.StateEvent) error {
	value, ok := types.Numeric(ev.State())
	if !ok {
		r.logger.Debug("non-numeric state not recorded",
			"item", ev.ItemName(),
			"state", types.Format(ev.State()),
		)
		return nil
	}
	r.writer.WriteItemState(ev.ItemName(), value, r.now())
	return nil
}
