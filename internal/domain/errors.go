package domain

import "errors"

var (
	// ErrConfigInvalid marks a missing or malformed destination, identifier or credential.
	ErrConfigInvalid = errors.New("config invalid")
	// ErrSourceUnavailable marks any upstream failure of an event source.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAuth marks credential failures; always wrapped together with ErrSourceUnavailable.
	ErrAuth = errors.New("authentication failed")
	// ErrDeliveryFailed marks a notification that could not be sent.
	ErrDeliveryFailed = errors.New("delivery failed")
)
