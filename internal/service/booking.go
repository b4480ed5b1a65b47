package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cormackle/ticketline/internal/auth"
	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
)

// BookingService orchestrates ticket allocation and booking queries.
type BookingService struct {
	events   repository.EventRepository
	bookings repository.BookingRepository
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	events repository.EventRepository,
	bookings repository.BookingRepository,
) *BookingService {
	return &BookingService{events: events, bookings: bookings}
}

// Book allocates tickets for the caller. All capacity logic lives in the
// repository's atomic Book so concurrent requests cannot overbook.
func (s *BookingService) Book(ctx context.Context, id model.Identity, eventID string, req model.BookRequest) (*model.Booking, error) {
	if err := auth.RequireRole(id, model.RoleAttendee); err != nil {
		return nil, err
	}
	return s.bookings.Book(ctx, eventID, id.UserID, req.Quantity)
}

// MyBookings returns the caller's bookings, each joined with a compact event
// summary. The summary is null when the event has since been deleted.
func (s *BookingService) MyBookings(ctx context.Context, id model.Identity) ([]model.BookingWithEvent, error) {
	bookings, err := s.bookings.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list my bookings: %w", err)
	}
	out := make([]model.BookingWithEvent, 0, len(bookings))
	for _, b := range bookings {
		joined := model.BookingWithEvent{Booking: b}
		if event, err := s.events.GetByID(ctx, b.EventID); err == nil {
			joined.Event = event.Summary()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("resolve booking event: %w", err)
		}
		out = append(out, joined)
	}
	return out, nil
}
