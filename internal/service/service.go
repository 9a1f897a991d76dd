// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aadil-qamri/event-management-api/internal/model"
	"github.com/aadil-qamri/event-management-api/internal/repository"
)

// ErrInvalidInput marks request payloads that fail required-field
// validation. Handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

// EventStore is the persistence surface for event CRUD and stats.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) (*model.Event, error)
	Stats(ctx context.Context, id string) (*model.EventStats, error)
}

// RegistrationStore is the persistence surface for the atomic
// registration and cancellation workflows.
type RegistrationStore interface {
	Register(ctx context.Context, eventID, name, email string) (*model.Event, *model.User, error)
	Cancel(ctx context.Context, eventID, email string) (*model.CancelResult, error)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
	validate      *validator.Validate
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore) *EventService {
	return &EventService{
		events:        events,
		registrations: registrations,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateEvent validates the request and delegates to the store.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: title, date and a positive capacity are required", ErrInvalidInput)
	}
	return s.events.Create(ctx, req)
}

// ListEvents returns all upcoming events with registration counts.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// UpdateEvent applies a partial update. The existence check runs first so
// an unknown id reports not-found even when the payload is also invalid,
// then a supplied date must not lie in the past.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	if _, err := s.events.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if req.Date != nil && req.Date.Before(time.Now().UTC()) {
		return nil, repository.ErrPastDate
	}
	return s.events.Update(ctx, id, req)
}

// DeleteEvent removes an event and, through the referential cascade, its
// registrations.
func (s *EventService) DeleteEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.events.Delete(ctx, id)
}

// GetStats returns capacity usage for one event.
func (s *EventService) GetStats(ctx context.Context, id string) (*model.EventStats, error) {
	return s.events.Stats(ctx, id)
}

// Register validates the payload and delegates the concurrency-safe
// workflow to the registration store.
func (s *EventService) Register(ctx context.Context, eventID string, req model.RegisterRequest) (*model.Event, *model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	return s.registrations.Register(ctx, eventID, req.Name, req.Email)
}

// Cancel validates the payload and delegates the cancellation workflow.
func (s *EventService) Cancel(ctx context.Context, eventID string, req model.CancelRequest) (*model.CancelResult, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: email is required to cancel registration", ErrInvalidInput)
	}
	return s.registrations.Cancel(ctx, eventID, req.Email)
}
