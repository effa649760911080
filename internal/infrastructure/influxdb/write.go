package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and key names of recorded item states.
const (
	ItemStateMeasurement = "item_state"
	ItemTag              = "item"
	ValueField           = "value"
)

// WriteItemState records the numeric value of an item's state at the
// given time. The write is non-blocking; failures reach the SetOnError
// callback.
//
// Example:
//
//	client.WriteItemState("LivingRoomTemperature", 21.5, time.Now())
func (c *Client) WriteItemState(item string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(itemStatePoint(item, value, at))
}

func itemStatePoint(item string, value float64, at time.Time) *write.Point {
	return write.NewPoint(
		ItemStateMeasurement,
		map[string]string{ItemTag: item},
		map[string]interface{}{ValueField: value},
		at,
	)
}
