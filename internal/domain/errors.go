package domain

import "errors"

// Error kinds reported by collaborators. Adapters wrap their failures with one
// of these so callers can branch with errors.Is.
var (
	// ErrSourceUnavailable means measurements or subscribers could not be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDeliveryFailed means a notification could not be handed to the transport.
	ErrDeliveryFailed = errors.New("delivery failed")
)
