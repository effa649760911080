// Package bridge connects the in-process event bus to the site's MQTT
// broker.
//
// Inbound, protocol bridges report states on graylogic/state/{protocol}/{item}
// and other services submit commands on graylogic/core/item/{item}/command;
// both are posted to the bus asynchronously. Outbound, every command event
// is forwarded to graylogic/command/{protocol}/{item} for the owning
// protocol bridge, and every state event is published retained on
// graylogic/core/item/{item}/state.
//
// Payloads are JSON objects carrying a "state" or "command" field, or a
// bare value:
//
//	{"state": 21.5}
//	{"command": "ON", "source": "panel-kitchen"}
//	OPEN
//
// Numeric text becomes a float64 and JSON booleans become ON/OFF.
package bridge
