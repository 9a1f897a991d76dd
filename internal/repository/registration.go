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

// RegistrationRepository handles the registration and cancellation
// workflows. Both span multiple statements with cross-statement
// invariants, so each runs on a single dedicated connection inside an
// explicit transaction.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Register performs a concurrency-safe registration inside one transaction.
//
// A naive read-then-insert is a race: two transactions can both count the
// registrations of a nearly-full event before either commits, and both
// insert. SELECT ... FOR UPDATE on the event row serialises concurrent
// attempts for the same event: the second transaction blocks on the row
// lock until the first commits or rolls back, then re-reads a count that
// already includes the winner's insert.
//
// User creation happens inside the same transaction, so a failure at any
// later step leaves no orphan user row. An existing user's stored name is
// authoritative; the supplied name is only used when creating the user.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, name, email string) (*model.Event, *model.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once the transaction has committed.
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the event row for the rest of the transaction.
	var event model.Event
	err = tx.QueryRow(ctx,
		`SELECT id, title, description, date, location, capacity, created_at, updated_at
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(
		&event.ID, &event.Title, &event.Description, &event.Date, &event.Location,
		&event.Capacity, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrEventNotFound
		}
		return nil, nil, fmt.Errorf("lock event row: %w", err)
	}

	if event.IsPast(time.Now().UTC()) {
		return nil, nil, ErrEventPassed
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&count)
	if err != nil {
		return nil, nil, fmt.Errorf("count registrations: %w", err)
	}
	if count >= event.Capacity {
		return nil, nil, ErrEventFull
	}

	// Resolve or create the user by email. Lookup by email is
	// authoritative: an existing name is never overwritten.
	var user model.User
	err = tx.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		user = model.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if _, err = tx.Exec(ctx,
			`INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)`,
			user.ID, user.Name, user.Email, user.CreatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("insert user: %w", err)
		}
	} else if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	var dupCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE user_id = $1 AND event_id = $2`,
		user.ID, eventID,
	).Scan(&dupCount)
	if err != nil {
		return nil, nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dupCount > 0 {
		return nil, nil, ErrAlreadyRegistered
	}

	reg := model.Registration{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, user_id, event_id, created_at) VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.UserID, reg.EventID, reg.CreatedAt,
	); err != nil {
		return nil, nil, fmt.Errorf("insert registration: %w", err)
	}

	// Recompute the post-insert count so the response carries fresh data.
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID,
	).Scan(&event.RegistrationsCount)
	if err != nil {
		return nil, nil, fmt.Errorf("recount registrations: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &event, &user, nil
}

// Cancel removes a user's registration for an event inside one
// transaction. The event and user must exist and the registration must be
// present, otherwise nothing is deleted.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, email string) (*model.CancelResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1`, eventID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	var userID string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM registrations WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotRegistered
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &model.CancelResult{EventID: eventID, UserID: userID}, nil
}
