package event

import "errors"

var (
	// ErrNilSubscriber is returned when subscribing a nil subscriber.
	ErrNilSubscriber = errors.New("event: nil subscriber")

	// ErrNotComparable is returned for subscribers whose dynamic type cannot
	// be compared, which would make unsubscribing impossible.
	ErrNotComparable = errors.New("event: subscriber type is not comparable")
)
