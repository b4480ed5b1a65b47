// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cormackle/ticketline/internal/auth"
	"github.com/cormackle/ticketline/internal/database"
	"github.com/cormackle/ticketline/internal/handler"
	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/cormackle/ticketline/internal/service"
	"github.com/google/uuid"
)

func main() {
	ctx := context.Background()

	// ── 1. Pick the backing store ─────────────────────────────────────────
	// The default is the volatile in-memory store, rebuilt on every start.
	// STORE=postgres switches to the pgx-backed store.
	var (
		eventRepo   repository.EventRepository
		bookingRepo repository.BookingRepository
		userRepo    repository.UserRepository
	)
	if getEnv("STORE", "memory") == "postgres" {
		pool, err := database.NewPool(ctx)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("database: %v", err)
		}
		eventRepo = repository.NewPostgresEventRepository(pool)
		bookingRepo = repository.NewPostgresBookingRepository(pool)
		userRepo = repository.NewPostgresUserRepository(pool)
		log.Println("using PostgreSQL store")
	} else {
		state := repository.NewMemoryState()
		eventRepo = repository.NewMemoryEventRepository(state)
		bookingRepo = repository.NewMemoryBookingRepository(state)
		userRepo = repository.NewMemoryUserRepository(state)
		log.Println("using in-memory store")
	}

	// ── 2. Wire up auth and services ──────────────────────────────────────
	signer := &auth.Bcrypt{Cost: 10}
	tokens := auth.NewTokens(8 * time.Hour)
	provider := auth.NewProvider(tokens, userRepo)

	if err := seedAccounts(ctx, userRepo, signer); err != nil {
		log.Fatalf("seed accounts: %v", err)
	}

	eventSvc := service.NewEventService(eventRepo, bookingRepo, userRepo)
	bookingSvc := service.NewBookingService(eventRepo, bookingRepo)
	userSvc := service.NewUserService(userRepo, signer, tokens)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := handler.NewRouter(
		handler.NewEventHandler(eventSvc, bookingSvc),
		handler.NewUserHandler(userSvc),
		provider,
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

// seedAccounts creates the two default accounts when they do not exist yet,
// so a fresh process always has one organizer and one attendee to log in as.
func seedAccounts(ctx context.Context, users repository.UserRepository, signer auth.Signer) error {
	defaults := []struct {
		name, email, password string
		role                  model.Role
	}{
		{"Default Organizer", "organizer@example.com", "organizer123", model.RoleOrganizer},
		{"Default Attendee", "attendee@example.com", "attendee123", model.RoleAttendee},
	}
	for _, d := range defaults {
		_, err := users.GetByEmail(ctx, d.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := signer.Sign(d.password)
		if err != nil {
			return err
		}
		err = users.Create(ctx, &model.User{
			ID:           uuid.New().String(),
			Name:         d.name,
			Email:        d.email,
			PasswordHash: hash,
			Role:         d.role,
		})
		if err != nil {
			return err
		}
		log.Printf("seeded %s account %s", d.role, d.email)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
