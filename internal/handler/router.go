package handler

import (
	"github.com/cormackle/ticketline/internal/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the full route tree with the global middleware stack.
func NewRouter(events *EventHandler, users *UserHandler, provider *auth.Provider) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS)                    // permissive CORS

	r.Get("/health", HealthCheck)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", users.Register)
		r.Post("/login", users.Login)
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(provider))
			r.Get("/me", users.Me)
		})
	})

	r.Route("/api/events", func(r chi.Router) {
		// Public reads.
		r.Get("/", events.ListEvents)
		r.Get("/{id}", events.GetEvent)

		// Everything else needs an identity; role and ownership checks
		// happen in the service layer.
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(provider))
			r.Post("/", events.CreateEvent)
			r.Put("/{id}", events.UpdateEvent)
			r.Delete("/{id}", events.DeleteEvent)
			r.Post("/{id}/book", events.BookTickets)
			r.Get("/bookings/me", events.MyBookings)
			r.Get("/{id}/bookings", events.EventBookings)
		})
	})

	return r
}
