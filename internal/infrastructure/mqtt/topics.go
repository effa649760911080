package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes of the site's MQTT hierarchy.
//
// Protocol bridges use the flat scheme graylogic/{category}/{protocol}/{item};
// the core publishes under graylogic/core.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixCore   = "graylogic/core"
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the topics the automation core uses.
//
//	topics := mqtt.Topics{}
//	topics.BridgeState("knx", "HallLight")  // graylogic/state/knx/HallLight
//	topics.CoreItemState("HallLight")       // graylogic/core/item/HallLight/state
type Topics struct{}

// BridgeState is where a protocol bridge reports an item's state.
//
// Example: graylogic/state/knx/HallLight
func (Topics) BridgeState(protocol, item string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, item)
}

// BridgeCommand is where the core sends commands for a protocol bridge to
// carry out.
//
// Example: graylogic/command/knx/HallLight
func (Topics) BridgeCommand(protocol, item string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, item)
}

// CoreItemState is the retained, authoritative state of an item as seen by
// the core.
//
// Example: graylogic/core/item/HallLight/state
func (Topics) CoreItemState(item string) string {
	return fmt.Sprintf("%s/item/%s/state", TopicPrefixCore, item)
}

// CoreItemCommand accepts commands for an item from outside the core
// (panels, scripts, other services).
//
// Example: graylogic/core/item/HallLight/command
func (Topics) CoreItemCommand(item string) string {
	return fmt.Sprintf("%s/item/%s/command", TopicPrefixCore, item)
}

// SystemStatus carries the core's retained online/offline status.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllBridgeStates matches every bridge state report.
//
// Pattern: graylogic/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllCoreItemCommands matches every externally submitted item command.
//
// Pattern: graylogic/core/item/+/command
func (Topics) AllCoreItemCommands() string {
	return fmt.Sprintf("%s/item/+/command", TopicPrefixCore)
}

// ParseBridgeState extracts protocol and item from a BridgeState topic.
func ParseBridgeState(topic string) (protocol, item string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixBridge+"/state/")
	if !found {
		return "", "", false
	}
	protocol, item, found = strings.Cut(rest, "/")
	if !found || protocol == "" || item == "" || strings.Contains(item, "/") {
		return "", "", false
	}
	return protocol, item, true
}

// ParseCoreItemCommand extracts the item from a CoreItemCommand topic.
func ParseCoreItemCommand(topic string) (item string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefixCore+"/item/")
	if !found {
		return "", false
	}
	item, found = strings.CutSuffix(rest, "/command")
	if !found || item == "" || strings.Contains(item, "/") {
		return "", false
	}
	return item, true
}
