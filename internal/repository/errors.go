// Package repository implements all database queries for the event
// management API. It uses pgx directly (no ORM) for transparency.
package repository

import "errors"

// Sentinel errors surfaced to the service and handler layers, which map
// them to HTTP status codes with errors.Is.
var (
	// ErrEventNotFound is returned when the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrUserNotFound is returned when no user exists for the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrEventPassed is returned when registering for an event whose date
	// is already in the past.
	ErrEventPassed = errors.New("cannot register for past events")

	// ErrEventFull is returned when an event has no remaining capacity.
	ErrEventFull = errors.New("event is full")

	// ErrAlreadyRegistered is returned when the same user registers twice
	// for one event.
	ErrAlreadyRegistered = errors.New("user already registered for this event")

	// ErrNotRegistered is returned when cancelling a registration that
	// does not exist.
	ErrNotRegistered = errors.New("user is not registered for this event")

	// ErrPastDate is returned when an update tries to move an event date
	// into the past.
	ErrPastDate = errors.New("event date cannot be in the past")
)
