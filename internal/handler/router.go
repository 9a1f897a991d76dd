package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter builds the chi router with the full middleware stack and all
// API routes.
func NewRouter(h *EventHandler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS)                    // permissive CORS for the web frontend

	// Bounds every request context, so a stuck storage call surfaces as a
	// server error instead of hanging; pgx honours the context deadline.
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Patch("/", h.UpdateEvent)
			r.Delete("/", h.DeleteEvent)
			r.Get("/stats", h.GetStats)
			r.Post("/register", h.Register)
			r.Delete("/register", h.Cancel)
		})
	})

	return r
}
