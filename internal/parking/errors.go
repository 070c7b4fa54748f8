package parking

import "errors"

// Sentinel errors for parking domain operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSlotNotFound is returned when a slot ID has no row.
	ErrSlotNotFound = errors.New("parking: slot not found")

	// ErrCardNotFound is returned when a card UID is not registered.
	ErrCardNotFound = errors.New("parking: card not found")

	// ErrCardExists is returned when registering a card UID that already exists.
	ErrCardExists = errors.New("parking: card already registered")

	// ErrLogNotFound is returned when a log entry ID has no row.
	ErrLogNotFound = errors.New("parking: log entry not found")

	// ErrInvalidCardUID is returned for card UIDs that are not 8-20 hex characters.
	ErrInvalidCardUID = errors.New("parking: card UID must be 8-20 hex characters")

	// ErrInvalidPricing is returned for pricing updates with negative values.
	ErrInvalidPricing = errors.New("parking: pricing values must not be negative")
)
