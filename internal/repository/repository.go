// Package repository defines the storage contracts for events, bookings, and
// users, along with the in-memory and PostgreSQL implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cormackle/ticketline/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when registering an email that already has an account.
var ErrEmailTaken = errors.New("email already in use")

// ErrTicketsBelowSold is returned when an update would shrink totalTickets
// below the number already sold.
var ErrTicketsBelowSold = errors.New("totalTickets must be >= ticketsSold")

// ErrInvalidQuantity is returned when a booking asks for zero or fewer tickets.
var ErrInvalidQuantity = errors.New("quantity must be > 0")

// CapacityError is returned when a booking asks for more tickets than remain.
// It carries the current availability so the caller can retry with less.
type CapacityError struct {
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d tickets available", e.Available)
}

// EventRepository handles persistence for events.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// List returns a snapshot of every event. Callers impose their own order.
	List(ctx context.Context) ([]model.Event, error)
	// Update applies a partial patch atomically. A patch that would set
	// TotalTickets below the current TicketsSold fails with
	// ErrTicketsBelowSold and leaves the event untouched.
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	// Delete removes the event and all bookings referencing it as one unit.
	Delete(ctx context.Context, id string) error
}

// BookingRepository handles persistence for bookings.
type BookingRepository interface {
	// Book atomically checks availability, increments the event's sold
	// counter, and appends the booking record. Two concurrent bookings on the
	// same event can never jointly exceed its availability; bookings on
	// different events do not contend.
	Book(ctx context.Context, eventID, userID string, quantity int) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error)
}

// UserRepository handles persistence for user accounts.
type UserRepository interface {
	// Create inserts a new user, failing with ErrEmailTaken when the email
	// (compared case-insensitively) already has an account.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
