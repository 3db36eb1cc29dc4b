package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillchat/quillchat/internal/auth"
	"github.com/quillchat/quillchat/internal/model"
	"github.com/quillchat/quillchat/internal/repository"
)

const (
	minPasswordLength    = 8
	minDisplayNameLength = 3
)

// UserStore is the slice of the repository the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id, displayName string, version int) (*model.User, error)
}

// TokenIssuer issues identity tokens for authenticated subjects.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// AuthService handles registration and credential login.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
	}
}

// Register creates a new enabled user and returns its public summary.
// The uniqueness race between check and insert is settled by the
// store's unique constraint, never in application code.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*model.UserSummary, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if len(displayName) < minDisplayNameLength {
		return nil, ErrDisplayNameTooShort
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
		Version:      0,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	summary := user.ToSummary()
	return &summary, nil
}

// Login checks credentials and returns a signed token on success.
// Unknown email, disabled account and wrong password are
// indistinguishable from the outside: all cost one argon2 verification
// and all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.DummyVerify(password)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !match || !user.Enabled {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}

// GetUser returns the public summary for a user ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.UserSummary, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	summary := user.ToSummary()
	return &summary, nil
}

// UpdateProfile changes a user's display name. The version must match
// the caller's last read or the write fails with ErrVersionConflict.
func (s *AuthService) UpdateProfile(ctx context.Context, id, displayName string, version int) (*model.UserSummary, error) {
	if len(displayName) < minDisplayNameLength {
		return nil, ErrDisplayNameTooShort
	}

	user, err := s.users.UpdateUserProfile(ctx, id, displayName, version)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	summary := user.ToSummary()
	return &summary, nil
}
