package domain

import "errors"

var (
	// ErrInvalidGeohash is returned when a geohash is empty, too long or uses characters outside the base32 alphabet
	ErrInvalidGeohash = errors.New("invalid geohash")

	// ErrCascadeTooDeep is returned when follow-up effects exceed the hop bound
	ErrCascadeTooDeep = errors.New("cascade exceeded maximum depth")

	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("not found")

	// ErrUnknownEventType is returned for an event type with no handler or contract binding
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrSubscriptionFailed is returned when subscription to events fails
	ErrSubscriptionFailed = errors.New("subscription failed")
)
