// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cormackle/ticketline/internal/auth"
	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/query"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/cormackle/ticketline/internal/service"
	"github.com/go-chi/chi/v5"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	var ce *repository.CapacityError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d tickets available", ce.Available))
	case errors.Is(err, repository.ErrTicketsBelowSold):
		writeError(w, http.StatusBadRequest, "totalTickets must be >= ticketsSold")
	case errors.Is(err, repository.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "quantity must be > 0")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrWrongRole):
		writeError(w, http.StatusForbidden, "Forbidden - insufficient role")
	case errors.Is(err, auth.ErrNotOwner):
		writeError(w, http.StatusForbidden, "You don't own this event")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, repository.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already in use")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ─── Event and booking handlers ───────────────────────────────────────────────

// EventHandler holds the HTTP handlers for events and bookings.
type EventHandler struct {
	events   *service.EventService
	bookings *service.BookingService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, bookings *service.BookingService) *EventHandler {
	return &EventHandler{events: events, bookings: bookings}
}

// ListEvents handles GET /api/events
// Public; filters, sorts, and paginates via the query engine.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	result, err := h.events.List(r.Context(), query.ParseParams(r.URL.Query()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": event})
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.events.Create(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Event created", "event": event})
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	event, err := h.events.Update(r.Context(), identity, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Event updated", "event": event})
}

// DeleteEvent handles DELETE /api/events/{id}
// Removes the event and all bookings referencing it.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	if err := h.events.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Event deleted"})
}

// BookTickets handles POST /api/events/{id}/book
// Performs the atomic ticket allocation for the authenticated attendee.
func (h *EventHandler) BookTickets(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	var req model.BookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	booking, err := h.bookings.Book(r.Context(), identity, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Booking successful", "booking": booking})
}

// MyBookings handles GET /api/events/bookings/me
func (h *EventHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	bookings, err := h.bookings.MyBookings(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// EventBookings handles GET /api/events/{id}/bookings
func (h *EventHandler) EventBookings(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	bookings, err := h.events.EventBookings(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// ─── User handlers ────────────────────────────────────────────────────────────

// UserHandler holds the HTTP handlers for accounts.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	user, token, err := h.users.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Registered", "user": user, "token": token})
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	user, token, err := h.users.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged in", "user": user, "token": token})
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r)
	user, err := h.users.Me(r.Context(), identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
