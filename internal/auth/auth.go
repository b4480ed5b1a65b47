// Package auth provides the identity layer: password hashing, bearer-token
// issuance and lookup, and the role/ownership gate. The rest of the system
// only ever sees a model.Identity; it never touches credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when login email or password is wrong.
// The two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for unknown, malformed, or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrWrongRole is returned when the caller's role is not in the allowed set.
var ErrWrongRole = errors.New("forbidden: insufficient role")

// ErrNotOwner is returned when the caller does not own the event it is
// trying to mutate. Distinct from ErrWrongRole, same 403 class.
var ErrNotOwner = errors.New("forbidden: not the event owner")

// Signer hashes and verifies passwords.
type Signer interface {
	Sign(pass string) (string, error)
	Verify(hash, pass string) error
}

// Bcrypt implements Signer on golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	Cost int
}

// Sign hashes a password at the configured cost.
func (b *Bcrypt) Sign(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify checks a password against its stored hash.
func (b *Bcrypt) Verify(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// Tokens is an in-memory bearer-token store. Tokens are opaque random
// strings; entries expire after the configured TTL and are dropped when an
// expired token is next seen.
type Tokens struct {
	mu   sync.RWMutex
	ttl  time.Duration
	toks map[string]tokenEntry

	// now is swappable in tests.
	now func() time.Time
}

// NewTokens constructs a token store with the given time-to-live.
func NewTokens(ttl time.Duration) *Tokens {
	return &Tokens{
		ttl:  ttl,
		toks: make(map[string]tokenEntry),
		now:  time.Now,
	}
}

// Issue mints a fresh token for a user.
func (t *Tokens) Issue(userID string) string {
	token := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.toks[token] = tokenEntry{userID: userID, expiresAt: t.now().Add(t.ttl)}
	return token
}

// Lookup resolves a token to its user id, or fails with ErrInvalidToken.
func (t *Tokens) Lookup(token string) (string, error) {
	t.mu.RLock()
	entry, ok := t.toks[token]
	t.mu.RUnlock()
	if !ok {
		return "", ErrInvalidToken
	}
	if t.now().After(entry.expiresAt) {
		t.mu.Lock()
		delete(t.toks, token)
		t.mu.Unlock()
		return "", ErrInvalidToken
	}
	return entry.userID, nil
}

// Provider turns a bearer credential into an Identity. The role comes from
// the user record, not the token, so a role change takes effect immediately.
type Provider struct {
	tokens *Tokens
	users  repository.UserRepository
}

// NewProvider constructs a Provider.
func NewProvider(tokens *Tokens, users repository.UserRepository) *Provider {
	return &Provider{tokens: tokens, users: users}
}

// Identify resolves a credential to the caller's identity.
func (p *Provider) Identify(ctx context.Context, credential string) (model.Identity, error) {
	userID, err := p.tokens.Lookup(credential)
	if err != nil {
		return model.Identity{}, err
	}
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Identity{}, ErrInvalidToken
		}
		return model.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	return model.Identity{UserID: user.ID, Role: user.Role}, nil
}

// RequireRole checks that the identity holds one of the allowed roles.
func RequireRole(id model.Identity, roles ...model.Role) error {
	for _, role := range roles {
		if id.Role == role {
			return nil
		}
	}
	return ErrWrongRole
}

// RequireOwner checks that the identity owns the event.
func RequireOwner(id model.Identity, event *model.Event) error {
	if event.OrganizerID != id.UserID {
		return ErrNotOwner
	}
	return nil
}
