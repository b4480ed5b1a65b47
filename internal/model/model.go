// Package model defines the core domain types for the event ticketing system.
package model

import "time"

// Role is the closed set of capabilities a user can hold.
type Role string

const (
	RoleOrganizer Role = "Organizer"
	RoleAttendee  Role = "Attendee"
)

// NormalizeRole maps arbitrary input to a valid role. Anything that is not
// exactly "Organizer" registers as an attendee.
func NormalizeRole(s string) Role {
	if Role(s) == RoleOrganizer {
		return RoleOrganizer
	}
	return RoleAttendee
}

// User is an account that can organize events or book tickets.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Summary returns the public projection of a user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Event is a ticketed occasion with finite inventory, owned by one organizer.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Venue        string    `json:"venue"`
	Date         time.Time `json:"date"`
	TotalTickets int       `json:"totalTickets"`
	TicketsSold  int       `json:"ticketsSold"`
	Price        float64   `json:"price"`
	OrganizerID  string    `json:"organizerId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Available returns the number of tickets still open for booking.
func (e *Event) Available() int {
	return e.TotalTickets - e.TicketsSold
}

// Summary returns the compact projection embedded in booking listings.
func (e *Event) Summary() *EventSummary {
	return &EventSummary{ID: e.ID, Title: e.Title, Date: e.Date, Venue: e.Venue}
}

// Booking is a purchase record binding a user to a quantity of tickets for one
// event. TotalPrice snapshots quantity*price at allocation time and is never
// recomputed, even if the event's price changes later.
type Booking struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	BookedAt   time.Time `json:"bookedAt"`
}

// Identity is the authenticated caller context produced by the auth layer.
type Identity struct {
	UserID string
	Role   Role
}

// ─── Request payloads ────────────────────────────────────────────────────────

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the payload for obtaining a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateEventRequest is the payload for publishing a new event.
type CreateEventRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Venue        string   `json:"venue"`
	Date         string   `json:"date"`
	TotalTickets *int     `json:"totalTickets"`
	Price        *float64 `json:"price"`
}

// UpdateEventRequest carries a partial update; nil fields are left untouched.
type UpdateEventRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Venue        *string  `json:"venue"`
	Date         *string  `json:"date"`
	TotalTickets *int     `json:"totalTickets"`
	Price        *float64 `json:"price"`
}

// EventPatch is the repository-level form of a partial update, with the date
// already parsed. Applied atomically under the event's lock.
type EventPatch struct {
	Title        *string
	Description  *string
	Category     *string
	Venue        *string
	Date         *time.Time
	TotalTickets *int
	Price        *float64
}

// BookRequest is the payload for booking tickets.
type BookRequest struct {
	Quantity int `json:"quantity"`
}

// ─── Response envelopes ──────────────────────────────────────────────────────

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
}

// UserSummary is the public slice of a user embedded in booking listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventSummary is the compact event projection embedded in booking listings.
type EventSummary struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Venue string    `json:"venue"`
}

// BookingWithEvent is a booking joined with its event summary. Event is null
// when the event has since been deleted.
type BookingWithEvent struct {
	Booking
	Event *EventSummary `json:"event"`
}

// BookingWithUser is a booking joined with the booking user's summary.
type BookingWithUser struct {
	Booking
	User *UserSummary `json:"user"`
}

// ListMeta describes a page of results before pagination was applied.
type ListMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}
