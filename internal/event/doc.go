// Package event is the in-process event bus of the automation core.
//
// Two kinds of events travel over the bus, both addressed to an item by
// name:
//
//   - CommandEvent: something asked the item to do something ("ON", 50).
//   - StateEvent: the item reports a new state (a bridge saw a telegram,
//     a rule posted an update).
//
// # Architecture
//
//	  publishers                     Bus                      subscribers
//	┌────────────┐  PublishAsync  ┌─────────┐  ReceiveCommand ┌────────────┐
//	│ MQTT bridge│ ─────────────► │ command │ ──────────────► │ rule engine│
//	│ rules      │  PublishSync   │ state   │  ReceiveUpdate  │ item updater│
//	│ CLI        │ ─────────────► │ lists   │ ──────────────► │ monitor    │
//	└────────────┘                └─────────┘                 └────────────┘
//	                                   │
//	                                   └── async delivery runs on the
//	                                       scheduler's immediate pool
//
// # Delivery
//
// Delivery iterates over a snapshot of the subscriber list taken when the
// delivery starts, so subscribers may subscribe or unsubscribe (themselves
// or others) from inside a callback. A subscriber that fails or panics is
// logged and skipped; the remaining subscribers still receive the event.
//
// Asynchronous events carry no ordering guarantee relative to each other.
package event
