package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cormackle/ticketline/internal/auth"
	"github.com/cormackle/ticketline/internal/model"
	"github.com/cormackle/ticketline/internal/repository"
	"github.com/google/uuid"
)

// UserService orchestrates account registration and login.
type UserService struct {
	users  repository.UserRepository
	signer auth.Signer
	tokens *auth.Tokens
}

// NewUserService constructs a UserService with its dependencies.
func NewUserService(users repository.UserRepository, signer auth.Signer, tokens *auth.Tokens) *UserService {
	return &UserService{users: users, signer: signer, tokens: tokens}
}

// Register creates an account and issues its first token. Unknown roles
// register as attendees.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, "", validationf("name, email and password required")
	}
	if !isValidEmail(req.Email) {
		return nil, "", validationf("email is not a valid email address")
	}

	hash, err := s.signer.Sign(req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.NormalizeRole(req.Role),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	return user, s.tokens.Issue(user.ID), nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error) {
	if req.Email == "" || req.Password == "" {
		return nil, "", validationf("email and password required")
	}
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", auth.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("look up user: %w", err)
	}
	if err := s.signer.Verify(user.PasswordHash, req.Password); err != nil {
		return nil, "", auth.ErrInvalidCredentials
	}
	return user, s.tokens.Issue(user.ID), nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, id model.Identity) (*model.User, error) {
	return s.users.GetByID(ctx, id.UserID)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
