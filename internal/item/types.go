package item

import (
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Type is the kind of value an item holds.
type Type string

// Item types.
const (
	TypeSwitch        Type = "switch"
	TypeDimmer        Type = "dimmer"
	TypeNumber        Type = "number"
	TypeContact       Type = "contact"
	TypeString        Type = "string"
	TypeRollershutter Type = "rollershutter"
	TypeColor         Type = "color"
)

// AllTypes returns all valid item types.
func AllTypes() []Type {
	return []Type{
		TypeSwitch, TypeDimmer, TypeNumber, TypeContact,
		TypeString, TypeRollershutter, TypeColor,
	}
}

// Protocol is the field protocol an item is bound to.
type Protocol string

// Protocol constants. Virtual items exist only inside the core.
const (
	ProtocolKNX       Protocol = "knx"
	ProtocolDALI      Protocol = "dali"
	ProtocolModbusRTU Protocol = "modbus_rtu"
	ProtocolModbusTCP Protocol = "modbus_tcp"
	ProtocolMQTT      Protocol = "mqtt"
	ProtocolVirtual   Protocol = "virtual"
)

// AllProtocols returns all valid protocols.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolKNX, ProtocolDALI, ProtocolModbusRTU,
		ProtocolModbusTCP, ProtocolMQTT, ProtocolVirtual,
	}
}

// Definition is the persisted description of an item.
type Definition struct {
	Name     string   `json:"name" yaml:"name"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type     Type     `json:"type" yaml:"type"`
	Protocol Protocol `json:"protocol" yaml:"protocol"`
	Address  string   `json:"address,omitempty" yaml:"address,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Last known state, restored on startup.
	State          types.State `json:"state,omitempty" yaml:"-"`
	StateUpdatedAt *time.Time  `json:"state_updated_at,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// DeepCopy returns a copy that shares no mutable data with d.
func (d *Definition) DeepCopy() *Definition {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Tags != nil {
		cp.Tags = make([]string, len(d.Tags))
		copy(cp.Tags, d.Tags)
	}
	if d.StateUpdatedAt != nil {
		t := *d.StateUpdatedAt
		cp.StateUpdatedAt = &t
	}
	return &cp
}
