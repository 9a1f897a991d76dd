// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aadil-qamri/event-management-api/internal/model"
	"github.com/aadil-qamri/event-management-api/internal/repository"
	"github.com/aadil-qamri/event-management-api/internal/service"
)

// EventHandler holds all HTTP handlers for the event management API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeServerError logs the full error server-side and sends the client a
// short generic message, never internal detail.
func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Server error")
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Event catalog ────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// Returns upcoming events with registration counts, sorted by date then
// location.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Title, date and a positive capacity are required.")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found.")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/{id}
// Only supplied fields change; omitted fields retain their prior value.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "Event not found.")
		case errors.Is(err, repository.ErrPastDate):
			writeError(w, http.StatusBadRequest, "Event date cannot be in the past.")
		default:
			writeServerError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, model.EventResponse{
		Message: "Event updated successfully",
		Event:   event,
	})
}

// DeleteEvent handles DELETE /events/{id}
// Deleting an unknown event reports 404 rather than an empty success.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found.")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.EventResponse{
		Message: "Event deleted successfully",
		Event:   event,
	})
}

// GetStats handles GET /events/{id}/stats
func (h *EventHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "Event not found.")
			return
		}
		writeServerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ─── Registration workflows ───────────────────────────────────────────────────

// Register handles POST /events/{id}/register
// Performs the concurrency-safe registration for the specified event.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	event, user, err := h.svc.Register(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Name and email are required.")
		case errors.Is(err, repository.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "Event not found.")
		case errors.Is(err, repository.ErrEventPassed):
			writeError(w, http.StatusBadRequest, "Cannot register for past events.")
		case errors.Is(err, repository.ErrEventFull):
			writeError(w, http.StatusBadRequest, "Event is full.")
		case errors.Is(err, repository.ErrAlreadyRegistered):
			writeError(w, http.StatusBadRequest, "User already registered for this event.")
		default:
			writeServerError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, model.RegisterResponse{
		Message: "User successfully registered for event!",
		Event:   event,
		User:    user,
	})
}

// Cancel handles DELETE /events/{id}/register
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Email is required to cancel registration.")
		case errors.Is(err, repository.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "Event not found.")
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, repository.ErrNotRegistered):
			writeError(w, http.StatusBadRequest, "User is not registered for this event.")
		default:
			writeServerError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, model.CancelResponse{
		Message: "Registration cancelled successfully.",
		EventID: result.EventID,
		UserID:  result.UserID,
	})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
