package ingest

import "errors"

var (
	// ErrMalformedPayload indicates a message that could not be decoded or
	// failed schema validation. The message is dropped without mutation.
	ErrMalformedPayload = errors.New("malformed event payload")

	// ErrQueueFull indicates the inbound queue was full and the message
	// was dropped.
	ErrQueueFull = errors.New("event queue full")

	// ErrInvalidGate indicates a command referenced a gate other than
	// entrance or exit.
	ErrInvalidGate = errors.New("invalid gate")
)
