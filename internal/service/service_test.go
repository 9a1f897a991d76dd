package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadil-qamri/event-management-api/internal/model"
	"github.com/aadil-qamri/event-management-api/internal/repository"
)

// memStore implements EventStore and RegistrationStore in memory with the
// same check sequence the SQL layer runs. A single mutex plays the role of
// the event row lock, so concurrent registrations serialise the same way
// they do against Postgres.
type memStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	users  map[string]*model.User          // keyed by email
	regs   map[string]map[string]time.Time // eventID -> userID -> created
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[string]*model.Event),
		users:  make(map[string]*model.User),
		regs:   make(map[string]map[string]time.Time),
	}
}

func (m *memStore) snapshot(id string) *model.Event {
	e := *m.events[id]
	e.RegistrationsCount = len(m.regs[id])
	return &e
}

func (m *memStore) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	e := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.events[e.ID] = e
	return m.snapshot(e.ID), nil
}

func (m *memStore) List(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var out []model.Event
	for id, e := range m.events {
		if e.Date.After(now) {
			out = append(out, *m.snapshot(id))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return nil, repository.ErrEventNotFound
	}
	return m.snapshot(id), nil
}

func (m *memStore) Update(_ context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.Capacity != nil {
		e.Capacity = *req.Capacity
	}
	e.UpdatedAt = time.Now().UTC()
	return m.snapshot(id), nil
}

func (m *memStore) Delete(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	out := *e
	delete(m.events, id)
	delete(m.regs, id) // cascade
	return &out, nil
}

func (m *memStore) Stats(_ context.Context, id string) (*model.EventStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	total := len(m.regs[id])
	return &model.EventStats{
		EventID:            id,
		Title:              e.Title,
		TotalRegistrations: total,
		RemainingCapacity:  e.Capacity - total,
		PercentageUsed:     model.PercentageUsed(total, e.Capacity),
	}, nil
}

func (m *memStore) Register(_ context.Context, eventID, name, email string) (*model.Event, *model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[eventID]
	if !ok {
		return nil, nil, repository.ErrEventNotFound
	}
	if e.IsPast(time.Now().UTC()) {
		return nil, nil, repository.ErrEventPassed
	}
	if len(m.regs[eventID]) >= e.Capacity {
		return nil, nil, repository.ErrEventFull
	}
	user, ok := m.users[email]
	if !ok {
		user = &model.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		m.users[email] = user
	}
	if _, dup := m.regs[eventID][user.ID]; dup {
		return nil, nil, repository.ErrAlreadyRegistered
	}
	if m.regs[eventID] == nil {
		m.regs[eventID] = make(map[string]time.Time)
	}
	m.regs[eventID][user.ID] = time.Now().UTC()

	u := *user
	return m.snapshot(eventID), &u, nil
}

func (m *memStore) Cancel(_ context.Context, eventID, email string) (*model.CancelResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return nil, repository.ErrEventNotFound
	}
	user, ok := m.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if _, ok := m.regs[eventID][user.ID]; !ok {
		return nil, repository.ErrNotRegistered
	}
	delete(m.regs[eventID], user.ID)
	return &model.CancelResult{EventID: eventID, UserID: user.ID}, nil
}

func newTestService() (*EventService, *memStore) {
	store := newMemStore()
	return NewEventService(store, store), store
}

func seedEvent(t *testing.T, svc *EventService, title, location string, date time.Time, capacity int) *model.Event {
	t.Helper()
	event, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title:    title,
		Date:     date,
		Location: location,
		Capacity: capacity,
	})
	require.NoError(t, err)
	return event
}

func inOneHour() time.Time { return time.Now().UTC().Add(time.Hour) }

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, model.CreateEventRequest{Date: inOneHour(), Capacity: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, model.CreateEventRequest{Title: "  ", Date: inOneHour(), Capacity: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, model.CreateEventRequest{Title: "GopherCon", Date: inOneHour(), Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	event, err := svc.CreateEvent(ctx, model.CreateEventRequest{Title: "GopherCon", Date: inOneHour(), Capacity: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 0, event.RegistrationsCount)
}

func TestRegisterValidation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	_, _, err := svc.Register(ctx, event.ID, model.RegisterRequest{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Validation failures never reach the store.
	assert.Empty(t, store.regs[event.ID])
}

func TestRegisterConcurrentAtCapacityBoundary(t *testing.T) {
	svc, _ := newTestService()
	event := seedEvent(t, svc, "Workshop", "Munich", inOneHour(), 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, email := range []string{"a@example.com", "b@example.com"} {
		i, email := i, email
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.Register(context.Background(), event.ID, model.RegisterRequest{
				Name:  "Racer",
				Email: email,
			})
		}()
	}
	wg.Wait()

	var successes, full int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, repository.ErrEventFull):
			full++
		}
	}
	assert.Equal(t, 1, successes, "exactly one registration must win the last seat")
	assert.Equal(t, 1, full)

	got, err := svc.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegistrationsCount, "capacity must never be exceeded")
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	_, _, err := svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)

	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegistrationsCount, "failed duplicate must not change the count")
}

func TestRegisterPastEvent(t *testing.T) {
	svc, _ := newTestService()
	event := seedEvent(t, svc, "Retro", "Hamburg", time.Now().UTC().Add(-time.Hour), 10)

	_, _, err := svc.Register(context.Background(), event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrEventPassed)
}

func TestRegisterUnknownEvent(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Register(context.Background(), uuid.New().String(), model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestRegisterKeepsExistingUserName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	first := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)
	second := seedEvent(t, svc, "GoLab", "Florence", inOneHour(), 10)

	_, user, err := svc.Register(ctx, first.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)

	// Same email with a different name: the stored name wins.
	_, user, err = svc.Register(ctx, second.ID, model.RegisterRequest{Name: "Alicia", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestCancelErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)
	other := seedEvent(t, svc, "GoLab", "Florence", inOneHour(), 10)

	_, err := svc.Cancel(ctx, event.ID, model.CancelRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Cancel(ctx, uuid.New().String(), model.CancelRequest{Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = svc.Cancel(ctx, event.ID, model.CancelRequest{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	// The user exists but holds a registration for a different event.
	_, _, err = svc.Register(ctx, other.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, event.ID, model.CancelRequest{Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrNotRegistered)

	got, err := svc.GetEvent(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegistrationsCount, "failed cancel must not delete anything")
}

func TestRegisterCancelRegisterRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	_, user, err := svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	result, err := svc.Cancel(ctx, event.ID, model.CancelRequest{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, event.ID, result.EventID)
	assert.Equal(t, user.ID, result.UserID)

	// No residual uniqueness conflict after cancelling.
	event2, _, err := svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, event2.RegistrationsCount)
}

func TestListFiltersPastAndSorts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sharedDate := inOneHour()
	seedEvent(t, svc, "Past meetup", "Berlin", time.Now().UTC().Add(-time.Hour), 10)
	seedEvent(t, svc, "Meetup B", "Zurich", sharedDate, 10)
	seedEvent(t, svc, "Meetup A", "Amsterdam", sharedDate, 10)
	seedEvent(t, svc, "Later meetup", "Berlin", sharedDate.Add(time.Hour), 10)

	events, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3, "past events are excluded")

	// Same date sorts by location alphabetically, then later dates follow.
	assert.Equal(t, "Amsterdam", events[0].Location)
	assert.Equal(t, "Zurich", events[1].Location)
	assert.Equal(t, "Later meetup", events[2].Title)
}

func TestUpdateEventPartial(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	time.Sleep(10 * time.Millisecond)

	capacity := 50
	updated, err := svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Capacity: &capacity})
	require.NoError(t, err)

	assert.Equal(t, 50, updated.Capacity)
	assert.Equal(t, event.Title, updated.Title)
	assert.Equal(t, event.Description, updated.Description)
	assert.Equal(t, event.Location, updated.Location)
	assert.True(t, updated.Date.Equal(event.Date))
	assert.True(t, updated.UpdatedAt.After(event.UpdatedAt), "updated_at must advance")
}

func TestUpdateEventErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	capacity := 50
	_, err := svc.UpdateEvent(ctx, uuid.New().String(), model.UpdateEventRequest{Capacity: &capacity})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	past := time.Now().UTC().Add(-time.Hour)
	_, err = svc.UpdateEvent(ctx, event.ID, model.UpdateEventRequest{Date: &past})
	assert.ErrorIs(t, err, repository.ErrPastDate)

	// The rejected update must not have touched the event.
	got, err := svc.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(event.Date))
}

func TestStats(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, _, err := svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Gopher", Email: email})
		require.NoError(t, err)
	}

	stats, err := svc.GetStats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRegistrations)
	assert.Equal(t, 7, stats.RemainingCapacity)
	assert.Equal(t, 30.0, stats.PercentageUsed)

	_, err = svc.GetStats(ctx, uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestDeleteEventCascades(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	event := seedEvent(t, svc, "GopherCon", "Berlin", inOneHour(), 10)

	_, _, err := svc.Register(ctx, event.ID, model.RegisterRequest{Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	deleted, err := svc.DeleteEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, deleted.ID)

	_, err = svc.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
	_, err = svc.GetStats(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = svc.DeleteEvent(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}
