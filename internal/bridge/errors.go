package bridge

import "errors"

var (
	// ErrInvalidTopic is returned for a message on a topic the bridge
	// cannot map to an item.
	ErrInvalidTopic = errors.New("bridge: invalid topic")

	// ErrInvalidPayload is returned for an empty payload or a JSON object
	// without the expected field.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrAlreadyStarted is returned by Start on a running bridge.
	ErrAlreadyStarted = errors.New("bridge: already started")
)
