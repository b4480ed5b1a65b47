package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cormackle/ticketline/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, category, venue, date,
	total_tickets, tickets_sold, price, organizer_id, created_at`

func scanEvent(row pgx.Row, e *model.Event) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Venue,
		&e.Date, &e.TotalTickets, &e.TicketsSold, &e.Price, &e.OrganizerID, &e.CreatedAt)
}

// ─── Events ──────────────────────────────────────────────────────────────────

// PostgresEventRepository handles Postgres persistence for events.
type PostgresEventRepository struct {
	db *pgxpool.Pool
}

// NewPostgresEventRepository constructs a PostgresEventRepository.
func NewPostgresEventRepository(db *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Create inserts a new event.
func (r *PostgresEventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, category, venue, date,
		    total_tickets, tickets_sold, price, organizer_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Title, e.Description, e.Category, e.Venue, e.Date,
		e.TotalTickets, e.TicketsSold, e.Price, e.OrganizerID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns a snapshot of all events.
func (r *PostgresEventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update applies a partial patch inside a transaction that locks the event
// row, so the TotalTickets check cannot race a concurrent booking.
func (r *PostgresEventRepository) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var e model.Event
	err = scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	if patch.TotalTickets != nil && *patch.TotalTickets < e.TicketsSold {
		err = ErrTicketsBelowSold
		return nil, err
	}
	applyPatch(&e, patch)

	_, err = tx.Exec(ctx,
		`UPDATE events SET title = $2, description = $3, category = $4,
		    venue = $5, date = $6, total_tickets = $7, price = $8
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Category, e.Venue, e.Date,
		e.TotalTickets, e.Price,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &e, nil
}

// Delete removes the event and cascades its bookings in one transaction. The
// row lock keeps the cascade mutually exclusive with in-flight bookings.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM bookings WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete bookings: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// PostgresBookingRepository handles Postgres persistence for bookings.
type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

// NewPostgresBookingRepository constructs a PostgresBookingRepository.
func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

// Book performs a concurrency-safe allocation inside a serialised transaction.
//
// SELECT ... FOR UPDATE acquires a row-level exclusive lock on the event row,
// so concurrent booking attempts on the same event serialize on the database
// and only one at a time can read-then-write the sold counter. Bookings on
// different events lock different rows and do not contend.
func (r *PostgresBookingRepository) Book(ctx context.Context, eventID, userID string, quantity int) (*model.Booking, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var totalTickets, ticketsSold int
	var price float64
	err = tx.QueryRow(ctx,
		`SELECT total_tickets, tickets_sold, price
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&totalTickets, &ticketsSold, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	available := totalTickets - ticketsSold
	if quantity > available {
		err = &CapacityError{Available: available}
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET tickets_sold = tickets_sold + $2 WHERE id = $1`,
		eventID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("increment tickets_sold: %w", err)
	}

	booking := &model.Booking{
		ID:         uuid.New().String(),
		EventID:    eventID,
		UserID:     userID,
		Quantity:   quantity,
		TotalPrice: float64(quantity) * price,
		BookedAt:   time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO bookings (id, event_id, user_id, quantity, total_price, booked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		booking.ID, booking.EventID, booking.UserID, booking.Quantity,
		booking.TotalPrice, booking.BookedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return booking, nil
}

func (r *PostgresBookingRepository) listWhere(ctx context.Context, column, value string) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, quantity, total_price, booked_at
		 FROM bookings
		 WHERE `+column+` = $1
		 ORDER BY booked_at ASC`,
		value,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalPrice, &b.BookedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListByUser returns all bookings made by a user, oldest first.
func (r *PostgresBookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.listWhere(ctx, "user_id", userID)
}

// ListByEvent returns all bookings for an event, oldest first.
func (r *PostgresBookingRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Booking, error) {
	return r.listWhere(ctx, "event_id", eventID)
}

// ─── Users ───────────────────────────────────────────────────────────────────

// PostgresUserRepository handles Postgres persistence for user accounts.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository constructs a PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts a new user, mapping the unique-email violation to ErrEmailTaken.
func (r *PostgresUserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) getWhere(ctx context.Context, where, value string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role FROM users WHERE `+where,
		value,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByID returns the user with the given id or ErrNotFound.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getWhere(ctx, "lower(email) = lower($1)", email)
}
