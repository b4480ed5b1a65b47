package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepos struct {
	events   *repository.MemoryEventRepository
	bookings *repository.MemoryBookingRepository
	users    *repository.MemoryUserRepository
}

func newMemoryRepos() memoryRepos {
	state := repository.NewMemoryState()
	return memoryRepos{
		events:   repository.NewMemoryEventRepository(state),
		bookings: repository.NewMemoryBookingRepository(state),
		users:    repository.NewMemoryUserRepository(state),
	}
}

func seedEvent(t *testing.T, repos memoryRepos, totalTickets int, price float64) *model.Event {
	t.Helper()
	event := &model.Event{
		ID:           uuid.New().String(),
		Title:        "Conf",
		Category:     "General",
		Date:         time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		TotalTickets: totalTickets,
		Price:        price,
		OrganizerID:  uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repos.events.Create(context.Background(), event))
	return event
}

func TestBook_AllocatesAndSnapshotsPrice(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 2, 10)

	booking, err := repos.bookings.Book(ctx, event.ID, "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, booking.Quantity)
	assert.Equal(t, 20.0, booking.TotalPrice)

	got, err := repos.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketsSold)

	// A later price change must not touch the committed booking.
	newPrice := 99.0
	_, err = repos.events.Update(ctx, event.ID, model.EventPatch{Price: &newPrice})
	require.NoError(t, err)
	mine, err := repos.bookings.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 20.0, mine[0].TotalPrice)
}

func TestBook_CapacityExhausted(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 2, 10)

	_, err := repos.bookings.Book(ctx, event.ID, "user-1", 2)
	require.NoError(t, err)

	_, err = repos.bookings.Book(ctx, event.ID, "user-2", 1)
	var capErr *repository.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 0, capErr.Available)

	got, err := repos.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TicketsSold, "failed booking must not mutate the counter")
}

func TestBook_CapacityErrorCarriesAvailability(t *testing.T) {
	repos := newMemoryRepos()
	event := seedEvent(t, repos, 10, 5)

	_, err := repos.bookings.Book(context.Background(), event.ID, "user-1", 11)
	var capErr *repository.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 10, capErr.Available)
}

func TestBook_InvalidQuantity(t *testing.T) {
	repos := newMemoryRepos()
	event := seedEvent(t, repos, 5, 1)

	for _, qty := range []int{0, -1} {
		_, err := repos.bookings.Book(context.Background(), event.ID, "user-1", qty)
		assert.ErrorIs(t, err, repository.ErrInvalidQuantity)
	}
}

func TestBook_UnknownEvent(t *testing.T) {
	repos := newMemoryRepos()
	_, err := repos.bookings.Book(context.Background(), "nope", "user-1", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBook_ConcurrentNeverOverbooks(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 5, 10)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.bookings.Book(ctx, event.ID, uuid.New().String(), 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, capacityFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var capErr *repository.CapacityError
		require.ErrorAs(t, err, &capErr)
		capacityFailures++
	}
	assert.Equal(t, 5, successes)
	assert.Equal(t, attempts-5, capacityFailures)

	got, err := repos.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TicketsSold)
	assert.LessOrEqual(t, got.TicketsSold, got.TotalTickets)

	// Ledger and counter must agree.
	bookings, err := repos.bookings.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	sum := 0
	for _, b := range bookings {
		sum += b.Quantity
	}
	assert.Equal(t, got.TicketsSold, sum)
}

func TestBook_DifferentEventsDoNotInterfere(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	first := seedEvent(t, repos, 100, 1)
	second := seedEvent(t, repos, 100, 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(eventID string) {
			defer wg.Done()
			_, err := repos.bookings.Book(ctx, eventID, uuid.New().String(), 1)
			assert.NoError(t, err)
		}([]string{first.ID, second.ID}[i%2])
	}
	wg.Wait()

	for _, id := range []string{first.ID, second.ID} {
		got, err := repos.events.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 50, got.TicketsSold)
	}
}

func TestUpdate_RejectsTotalBelowSold(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 10, 1)
	_, err := repos.bookings.Book(ctx, event.ID, "user-1", 4)
	require.NoError(t, err)

	lower := 3
	newTitle := "Renamed"
	_, err = repos.events.Update(ctx, event.ID, model.EventPatch{
		Title:        &newTitle,
		TotalTickets: &lower,
	})
	assert.ErrorIs(t, err, repository.ErrTicketsBelowSold)

	// Nothing from the rejected patch may be applied.
	got, err := repos.events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Conf", got.Title)
	assert.Equal(t, 10, got.TotalTickets)
}

func TestUpdate_AppliesPartialPatch(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 10, 1)

	venue := "Hall B"
	total := 20
	updated, err := repos.events.Update(ctx, event.ID, model.EventPatch{
		Venue:        &venue,
		TotalTickets: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hall B", updated.Venue)
	assert.Equal(t, 20, updated.TotalTickets)
	assert.Equal(t, "Conf", updated.Title, "unset fields stay untouched")
}

func TestDelete_CascadesBookings(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()
	event := seedEvent(t, repos, 10, 1)
	other := seedEvent(t, repos, 10, 1)
	_, err := repos.bookings.Book(ctx, event.ID, "user-1", 2)
	require.NoError(t, err)
	_, err = repos.bookings.Book(ctx, other.ID, "user-1", 1)
	require.NoError(t, err)

	require.NoError(t, repos.events.Delete(ctx, event.ID))

	_, err = repos.events.GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := repos.bookings.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].EventID)

	// Booking against the deleted event fails cleanly.
	_, err = repos.bookings.Book(ctx, event.ID, "user-2", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete_UnknownEvent(t *testing.T) {
	repos := newMemoryRepos()
	assert.ErrorIs(t, repos.events.Delete(context.Background(), "nope"), repository.ErrNotFound)
}

func TestUsers_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	repos := newMemoryRepos()
	ctx := context.Background()

	err := repos.users.Create(ctx, &model.User{
		ID:    uuid.New().String(),
		Name:  "A",
		Email: "someone@example.com",
		Role:  model.RoleAttendee,
	})
	require.NoError(t, err)

	err = repos.users.Create(ctx, &model.User{
		ID:    uuid.New().String(),
		Name:  "B",
		Email: "Someone@Example.com",
		Role:  model.RoleAttendee,
	})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	got, err := repos.users.GetByEmail(ctx, "SOMEONE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}
