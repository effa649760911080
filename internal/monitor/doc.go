// Package monitor observes the event bus without taking part in it.
//
// EventLogger writes every command and state event to the log. Recorder
// keeps a time series of numeric item states in InfluxDB. Both are plain
// bus subscribers:
//
//	bus.SubscribeCommand(monitor.NewEventLogger(logger))
//	bus.SubscribeState(monitor.NewEventLogger(logger))
//	bus.SubscribeState(monitor.NewRecorder(influx, logger))
package monitor
