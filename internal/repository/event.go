package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aadil-qamri/event-management-api/internal/model"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	now := time.Now().UTC()
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, date, location, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Description, event.Date, event.Location,
		event.Capacity, event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns upcoming events (date strictly after now), each annotated
// with its live registration count, ordered by date then location.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.title, e.description, e.date, e.location, e.capacity,
		        e.created_at, e.updated_at, COUNT(r.id) AS registrations_count
		 FROM events e
		 LEFT JOIN registrations r ON r.event_id = e.id
		 WHERE e.date > now()
		 GROUP BY e.id
		 ORDER BY e.date ASC, e.location ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
			&e.CreatedAt, &e.UpdatedAt, &e.RegistrationsCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event with its registration count, or
// ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT e.id, e.title, e.description, e.date, e.location, e.capacity,
		        e.created_at, e.updated_at, COUNT(r.id) AS registrations_count
		 FROM events e
		 LEFT JOIN registrations r ON r.event_id = e.id
		 WHERE e.id = $1
		 GROUP BY e.id`,
		id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
		&e.CreatedAt, &e.UpdatedAt, &e.RegistrationsCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Update applies a partial update: each COALESCE keeps the stored value
// when the corresponding field was omitted from the request.
func (r *EventRepository) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`UPDATE events SET
		    title = COALESCE($1, title),
		    description = COALESCE($2, description),
		    location = COALESCE($3, location),
		    date = COALESCE($4, date),
		    capacity = COALESCE($5, capacity),
		    updated_at = now()
		 WHERE id = $6
		 RETURNING id, title, description, date, location, capacity, created_at, updated_at`,
		req.Title, req.Description, req.Location, req.Date, req.Capacity, id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &e, nil
}

// Delete removes the event by id and returns the deleted row, or
// ErrEventNotFound. Dependent registrations are removed by the foreign
// key cascade.
func (r *EventRepository) Delete(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`DELETE FROM events WHERE id = $1
		 RETURNING id, title, description, date, location, capacity, created_at, updated_at`,
		id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Location, &e.Capacity,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("delete event: %w", err)
	}
	return &e, nil
}

// Stats returns capacity usage for one event. Remaining capacity is not
// clamped: an over-subscribed event reports a negative remainder.
func (r *EventRepository) Stats(ctx context.Context, id string) (*model.EventStats, error) {
	var (
		title    string
		capacity int
	)
	err := r.db.QueryRow(ctx,
		`SELECT title, capacity FROM events WHERE id = $1`, id,
	).Scan(&title, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	var total int
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, id,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	return &model.EventStats{
		EventID:            id,
		Title:              title,
		TotalRegistrations: total,
		RemainingCapacity:  capacity - total,
		PercentageUsed:     model.PercentageUsed(total, capacity),
	}, nil
}
