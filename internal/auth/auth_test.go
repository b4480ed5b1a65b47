package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcrypt_SignAndVerify(t *testing.T) {
	signer := &Bcrypt{Cost: 4} // minimum cost keeps the test fast

	hash, err := signer.Sign("organizer123")
	require.NoError(t, err)
	assert.NotEqual(t, "organizer123", hash)

	assert.NoError(t, signer.Verify(hash, "organizer123"))
	assert.Error(t, signer.Verify(hash, "wrong"))
}

func TestTokens_IssueAndLookup(t *testing.T) {
	tokens := NewTokens(8 * time.Hour)

	token := tokens.Issue("user-1")
	require.NotEmpty(t, token)

	userID, err := tokens.Lookup(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = tokens.Lookup("bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Expiry(t *testing.T) {
	tokens := NewTokens(8 * time.Hour)
	current := time.Now()
	tokens.now = func() time.Time { return current }

	token := tokens.Issue("user-1")

	current = current.Add(8*time.Hour - time.Minute)
	_, err := tokens.Lookup(token)
	assert.NoError(t, err)

	current = current.Add(2 * time.Minute)
	_, err = tokens.Lookup(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired entries are dropped, so a later lookup fails the same way.
	_, err = tokens.Lookup(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvider_Identify(t *testing.T) {
	ctx := context.Background()
	state := repository.NewMemoryState()
	users := repository.NewMemoryUserRepository(state)
	user := &model.User{
		ID:    uuid.New().String(),
		Name:  "Org",
		Email: "org@example.com",
		Role:  model.RoleOrganizer,
	}
	require.NoError(t, users.Create(ctx, user))

	tokens := NewTokens(time.Hour)
	provider := NewProvider(tokens, users)

	token := tokens.Issue(user.ID)
	identity, err := provider.Identify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{UserID: user.ID, Role: model.RoleOrganizer}, identity)

	// A token for a vanished account is as good as no token.
	orphan := tokens.Issue("gone")
	_, err = provider.Identify(ctx, orphan)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireRole(t *testing.T) {
	organizer := model.Identity{UserID: "u1", Role: model.RoleOrganizer}
	attendee := model.Identity{UserID: "u2", Role: model.RoleAttendee}

	assert.NoError(t, RequireRole(organizer, model.RoleOrganizer))
	assert.ErrorIs(t, RequireRole(attendee, model.RoleOrganizer), ErrWrongRole)
	assert.NoError(t, RequireRole(attendee, model.RoleOrganizer, model.RoleAttendee))
}

func TestRequireOwner(t *testing.T) {
	event := &model.Event{ID: "e1", OrganizerID: "u1"}

	assert.NoError(t, RequireOwner(model.Identity{UserID: "u1", Role: model.RoleOrganizer}, event))

	err := RequireOwner(model.Identity{UserID: "u2", Role: model.RoleOrganizer}, event)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.NotErrorIs(t, err, ErrWrongRole, "not-owner is distinct from wrong-role")
}
