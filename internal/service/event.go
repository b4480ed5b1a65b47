package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cormackle/ticketline/internal/auth"
	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/query"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultCategory     = "General"
	defaultTotalTickets = 100
)

// EventService orchestrates event CRUD and listing.
type EventService struct {
	events   repository.EventRepository
	bookings repository.BookingRepository
	users    repository.UserRepository
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events repository.EventRepository,
	bookings repository.BookingRepository,
	users repository.UserRepository,
) *EventService {
	return &EventService{events: events, bookings: bookings, users: users}
}

// Create validates the request and publishes a new event owned by the caller.
func (s *EventService) Create(ctx context.Context, id model.Identity, req model.CreateEventRequest) (*model.Event, error) {
	if err := auth.RequireRole(id, model.RoleOrganizer); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Date == "" {
		return nil, validationf("title and date required")
	}
	date, err := model.ParseTime(req.Date)
	if err != nil {
		return nil, validationf("invalid date")
	}

	totalTickets := defaultTotalTickets
	if req.TotalTickets != nil {
		totalTickets = *req.TotalTickets
	}
	if totalTickets < 0 {
		return nil, validationf("totalTickets must be >= 0")
	}
	var price float64
	if req.Price != nil {
		price = *req.Price
	}
	if price < 0 {
		return nil, validationf("price must be >= 0")
	}
	category := req.Category
	if category == "" {
		category = defaultCategory
	}

	event := &model.Event{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		Category:     category,
		Venue:        req.Venue,
		Date:         date,
		TotalTickets: totalTickets,
		TicketsSold:  0,
		Price:        price,
		OrganizerID:  id.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// Get returns a single event by ID.
func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// List runs the query engine over a snapshot of the catalog.
func (s *EventService) List(ctx context.Context, params query.Params) (*query.Result, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	result := query.Run(events, params)
	return &result, nil
}

// Update applies a partial update to an event the caller owns.
func (s *EventService) Update(ctx context.Context, id model.Identity, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	if err := auth.RequireRole(id, model.RoleOrganizer); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(id, event); err != nil {
		return nil, err
	}

	patch := model.EventPatch{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Venue:        req.Venue,
		TotalTickets: req.TotalTickets,
		Price:        req.Price,
	}
	if req.Date != nil {
		date, err := model.ParseTime(*req.Date)
		if err != nil {
			return nil, validationf("invalid date")
		}
		patch.Date = &date
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, validationf("title must not be empty")
	}
	if patch.TotalTickets != nil && *patch.TotalTickets < 0 {
		return nil, validationf("totalTickets must be >= 0")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, validationf("price must be >= 0")
	}

	return s.events.Update(ctx, eventID, patch)
}

// Delete removes an event the caller owns, cascading its bookings.
func (s *EventService) Delete(ctx context.Context, id model.Identity, eventID string) error {
	if err := auth.RequireRole(id, model.RoleOrganizer); err != nil {
		return err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(id, event); err != nil {
		return err
	}
	return s.events.Delete(ctx, eventID)
}

// EventBookings returns the bookings for an event the caller owns, each
// joined with the booking user's public summary (null when the account is
// gone).
func (s *EventService) EventBookings(ctx context.Context, id model.Identity, eventID string) ([]model.BookingWithUser, error) {
	if err := auth.RequireRole(id, model.RoleOrganizer); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(id, event); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event bookings: %w", err)
	}
	out := make([]model.BookingWithUser, 0, len(bookings))
	for _, b := range bookings {
		joined := model.BookingWithUser{Booking: b}
		if user, err := s.users.GetByID(ctx, b.UserID); err == nil {
			joined.User = user.Summary()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("resolve booking user: %w", err)
		}
		out = append(out, joined)
	}
	return out, nil
}
