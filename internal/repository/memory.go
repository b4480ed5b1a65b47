package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cormackle/ticketline/internal/model"
	"github.com/google/uuid"
)

// MemoryState is the process-local backing store shared by the in-memory
// repositories, the way a pgxpool.Pool is shared by the Postgres ones.
//
// Two levels of locking:
//
//   - mu guards the maps and the bookings slice themselves. It is held only
//     for constant-time reads and writes.
//   - locks holds one mutex per event id. Every operation that reads-then-
//     writes an event's state (book, update, cascade delete) holds that
//     event's mutex for the whole check-then-act sequence, so concurrent
//     bookings on the same event serialize while bookings on different
//     events proceed independently.
//
// Lock order is always event mutex first, then mu. An event's mutex is
// retired together with the event; a booking that wins a stale mutex finds
// the event gone and fails with ErrNotFound.
type MemoryState struct {
	mu       sync.RWMutex
	events   map[string]*model.Event
	bookings []model.Booking
	users    map[string]*model.User
	emails   map[string]string // lowercased email -> user id
	locks    map[string]*sync.Mutex
}

// NewMemoryState constructs an empty volatile store.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		events: make(map[string]*model.Event),
		users:  make(map[string]*model.User),
		emails: make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
	}
}

// eventLock returns the mutex for an event id, or nil when the event does not
// exist (or no longer exists).
func (s *MemoryState) eventLock(id string) *sync.Mutex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locks[id]
}

// ─── Events ──────────────────────────────────────────────────────────────────

// MemoryEventRepository handles in-memory persistence for events.
type MemoryEventRepository struct {
	s *MemoryState
}

// NewMemoryEventRepository constructs a MemoryEventRepository.
func NewMemoryEventRepository(s *MemoryState) *MemoryEventRepository {
	return &MemoryEventRepository{s: s}
}

// Create inserts a new event and registers its lock.
func (r *MemoryEventRepository) Create(ctx context.Context, event *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev := *event
	r.s.events[ev.ID] = &ev
	r.s.locks[ev.ID] = &sync.Mutex{}
	return nil
}

// GetByID returns a copy of a single event or ErrNotFound.
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ev, ok := r.s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *ev
	return &out, nil
}

// List returns a snapshot of all events.
func (r *MemoryEventRepository) List(ctx context.Context) ([]model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	events := make([]model.Event, 0, len(r.s.events))
	for _, ev := range r.s.events {
		events = append(events, *ev)
	}
	return events, nil
}

// Update applies a partial patch under the event's lock. Shrinking
// TotalTickets below the current TicketsSold fails with ErrTicketsBelowSold
// and leaves the event untouched.
func (r *MemoryEventRepository) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	lock := r.s.eventLock(id)
	if lock == nil {
		return nil, ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.TotalTickets != nil && *patch.TotalTickets < ev.TicketsSold {
		return nil, ErrTicketsBelowSold
	}
	applyPatch(ev, patch)
	out := *ev
	return &out, nil
}

// Delete removes the event, its bookings, and its lock as one unit. Holding
// the event's mutex keeps the cascade mutually exclusive with any in-flight
// booking on the same event.
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	lock := r.s.eventLock(id)
	if lock == nil {
		return ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return ErrNotFound
	}
	kept := r.s.bookings[:0]
	for _, b := range r.s.bookings {
		if b.EventID != id {
			kept = append(kept, b)
		}
	}
	r.s.bookings = kept
	delete(r.s.events, id)
	delete(r.s.locks, id)
	return nil
}

func applyPatch(ev *model.Event, patch model.EventPatch) {
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Category != nil {
		ev.Category = *patch.Category
	}
	if patch.Venue != nil {
		ev.Venue = *patch.Venue
	}
	if patch.Date != nil {
		ev.Date = *patch.Date
	}
	if patch.TotalTickets != nil {
		ev.TotalTickets = *patch.TotalTickets
	}
	if patch.Price != nil {
		ev.Price = *patch.Price
	}
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// MemoryBookingRepository handles in-memory persistence for bookings.
type MemoryBookingRepository struct {
	s *MemoryState
}

// NewMemoryBookingRepository constructs a MemoryBookingRepository.
func NewMemoryBookingRepository(s *MemoryState) *MemoryBookingRepository {
	return &MemoryBookingRepository{s: s}
}

// Book performs the atomic ticket allocation for one event.
//
// The event's mutex is held across the whole read-check-write sequence, so
// two concurrent bookings can never both read the same availability and both
// be admitted past it. The counter increment and the ledger append commit
// together under the same hold.
func (r *MemoryBookingRepository) Book(ctx context.Context, eventID, userID string, quantity int) (*model.Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	lock := r.s.eventLock(eventID)
	if lock == nil {
		return nil, ErrNotFound
	}
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[eventID]
	if !ok {
		// Event was deleted between fetching the lock and acquiring it.
		return nil, ErrNotFound
	}
	available := ev.TotalTickets - ev.TicketsSold
	if quantity > available {
		return nil, &CapacityError{Available: available}
	}

	booking := model.Booking{
		ID:         uuid.New().String(),
		EventID:    eventID,
		UserID:     userID,
		Quantity:   quantity,
		TotalPrice: float64(quantity) * ev.Price,
		BookedAt:   time.Now().UTC(),
	}
	ev.TicketsSold += quantity
	r.s.bookings = append(r.s.bookings, booking)
	return &booking, nil
}

// ListByUser returns all bookings made by a user, oldest first.
func (r *MemoryBookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Booking
	for _, b := range r.s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListByEvent returns all bookings for an event, oldest first.
func (r *MemoryBookingRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Booking
	for _, b := range r.s.bookings {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

// ─── Users ───────────────────────────────────────────────────────────────────

// MemoryUserRepository handles in-memory persistence for user accounts.
type MemoryUserRepository struct {
	s *MemoryState
}

// NewMemoryUserRepository constructs a MemoryUserRepository.
func NewMemoryUserRepository(s *MemoryState) *MemoryUserRepository {
	return &MemoryUserRepository{s: s}
}

// Create inserts a new user or fails with ErrEmailTaken.
func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, taken := r.s.emails[key]; taken {
		return ErrEmailTaken
	}
	u := *user
	r.s.users[u.ID] = &u
	r.s.emails[key] = u.ID
	return nil
}

// GetByID returns a copy of the user or ErrNotFound.
func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r.s.users[id]
	return &out, nil
}
