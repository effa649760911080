package item

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the longest accepted item name.
const MaxNameLength = 64

// namePattern matches item names: a letter followed by letters, digits or
// underscores. Names appear in MQTT topics and rule scripts.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateDefinition checks that an item definition is complete.
func ValidateDefinition(d *Definition) error {
	if d == nil {
		return ErrInvalidItem
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if !validType(d.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidType, d.Type)
	}
	if !validProtocol(d.Protocol) {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, d.Protocol)
	}
	if d.Protocol != ProtocolVirtual && d.Address == "" {
		return fmt.Errorf("%w: %s items need an address", ErrInvalidAddress, d.Protocol)
	}
	return nil
}

// ValidateName checks an item name.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validType(t Type) bool {
	for _, candidate := range AllTypes() {
		if candidate == t {
			return true
		}
	}
	return false
}

func validProtocol(p Protocol) bool {
	for _, candidate := range AllProtocols() {
		if candidate == p {
			return true
		}
	}
	return false
}
