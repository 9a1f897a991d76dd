// Package model defines the core domain types for the event management API.
package model

import (
	"math"
	"time"
)

// Event represents a schedulable occurrence with capacity-limited attendance.
// RegistrationsCount is derived from the registrations table, never stored.
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Date               time.Time `json:"date"`
	Location           string    `json:"location"`
	Capacity           int       `json:"capacity"`
	RegistrationsCount int       `json:"registrations_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegistrationsCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegistrationsCount >= e.Capacity
}

// IsPast returns true when the event date is strictly before now.
func (e *Event) IsPast(now time.Time) bool {
	return e.Date.Before(now)
}

// User is an attendee, identified externally by email. Created implicitly
// on first registration; the stored name is authoritative and is never
// overwritten by a later registration's supplied name.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Registration links one user to one event. The (user_id, event_id) pair
// is unique: a user cannot hold two registrations for the same event.
type Registration struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EventStats summarises capacity usage for one event.
type EventStats struct {
	EventID            string  `json:"event_id"`
	Title              string  `json:"title"`
	TotalRegistrations int     `json:"total_registrations"`
	RemainingCapacity  int     `json:"remaining_capacity"`
	PercentageUsed     float64 `json:"percentage_used"`
}

// PercentageUsed computes total/capacity as a percentage rounded to two
// decimal places. Remaining capacity is deliberately not clamped, so an
// over-subscribed event reports a negative remainder and >100% usage.
func PercentageUsed(total, capacity int) float64 {
	if capacity == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(capacity)*10000) / 100
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
	Capacity    int       `json:"capacity" validate:"required,gt=0"`
}

// UpdateEventRequest is the payload for a partial event update. Pointer
// fields distinguish "omitted" from a zero value: only supplied fields
// replace the stored ones.
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *time.Time `json:"date"`
	Location    *string    `json:"location"`
	Capacity    *int       `json:"capacity"`
}

// RegisterRequest is the payload for registering an attendee.
type RegisterRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// CancelRequest is the payload for cancelling a registration.
type CancelRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CancelResult reports which registration was removed.
type CancelResult struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

// RegisterResponse is the success envelope for a registration.
type RegisterResponse struct {
	Message string `json:"message"`
	Event   *Event `json:"event"`
	User    *User  `json:"user"`
}

// EventResponse wraps an event mutation result with a message.
type EventResponse struct {
	Message string `json:"message"`
	Event   *Event `json:"event"`
}

// CancelResponse is the success envelope for a cancellation.
type CancelResponse struct {
	Message string `json:"message"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
