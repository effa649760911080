package item

import "errors"

// Domain errors for the item package.
//
//	if errors.Is(err, item.ErrItemNotFound) {
//	    // handle not found case
//	}
var (
	// ErrItemNotFound is returned when an item name does not exist.
	ErrItemNotFound = errors.New("item: not found")

	// ErrItemExists is returned when creating an item whose name is taken.
	ErrItemExists = errors.New("item: already exists")

	// ErrInvalidItem is returned when item validation fails.
	ErrInvalidItem = errors.New("item: invalid")

	// ErrInvalidName is returned when an item name is empty, too long or
	// contains characters other than letters, digits and underscores.
	ErrInvalidName = errors.New("item: invalid name")

	// ErrInvalidType is returned when an item type is not recognised.
	ErrInvalidType = errors.New("item: invalid type")

	// ErrInvalidProtocol is returned when a protocol value is not recognised.
	ErrInvalidProtocol = errors.New("item: invalid protocol")

	// ErrInvalidAddress is returned when a non-virtual item has no address.
	ErrInvalidAddress = errors.New("item: invalid address")
)
