// Package types defines the value types carried between items, the event
// bus and the rule engine.
//
// A State is the current value of an item ("ON", 21.5, "OPEN", ...). A
// Command is a request addressed to an item ("OFF", 50, "UP", ...). Both
// are opaque to the core: only equality is ever interpreted.
package types

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// State is the value of an item.
type State any

// Command is a request sent to an item.
type Command any

// Well-known state and command values used by switch, contact and
// rollershutter items.
const (
	On      = "ON"
	Off     = "OFF"
	Open    = "OPEN"
	Closed  = "CLOSED"
	Up      = "UP"
	Down    = "DOWN"
	Stop    = "STOP"
	Toggle  = "TOGGLE"
	Null    = "NULL"
	Unknown = "UNDEF"
)

// Equal reports whether two states (or commands) carry the same value.
//
// Numbers are compared by value regardless of their Go type, so an int 1
// coming from a YAML rule equals a float64 1 coming from an MQTT payload.
// Strings are compared exactly.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	if ta, tb := reflect.TypeOf(a), reflect.TypeOf(b); ta.Comparable() && tb.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Format renders a state or command for logs and MQTT payloads.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return Null
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return On
		}
		return Off
	default:
		return fmt.Sprint(t)
	}
}

// Parse converts a raw text value into a state. Numeric text becomes a
// float64, "true"/"false" become ON/OFF, everything else is kept as text.
func Parse(raw string) State {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return On
	case "false":
		return Off
	}
	return s
}

// Numeric returns the numeric value of a state. Binary states map to 1
// (ON, OPEN) and 0 (OFF, CLOSED).
func Numeric(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		switch strings.ToUpper(t) {
		case On, Open:
			return 1, true
		case Off, Closed:
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
