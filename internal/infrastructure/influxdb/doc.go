// Package influxdb records item state history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library: one connection,
// one non-blocking batching write API, and an error callback for the
// failures that batching defers.
//
// Numeric item states are written to the item_state measurement, tagged
// with the item name:
//
//	item_state,item=LivingRoomTemperature value=21.5 1767225600000000000
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { logger.Warn("influxdb write failed", "error", err) })
//
//	client.WriteItemState("LivingRoomTemperature", 21.5, time.Now())
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
