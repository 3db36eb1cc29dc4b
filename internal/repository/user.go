package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/quillchat/quillchat/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrVersionConflict = errors.New("stale version")
)

// CreateUser inserts a new user into the database.
// Email uniqueness is enforced by the unique constraint, so two
// concurrent registrations for the same email can never both commit.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, enabled, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Enabled,
		user.CreatedAt,
		user.Version,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, enabled, created_at, version
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
// Lookup is case-sensitive, matching how emails are stored.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, password_hash, display_name, enabled, created_at, version
		FROM users
		WHERE email = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateUserProfile updates a user's display name using a
// compare-and-swap on the version counter. A write against a stale
// version fails with ErrVersionConflict instead of overwriting a
// concurrent update.
func (r *Repository) UpdateUserProfile(ctx context.Context, id, displayName string, version int) (*model.User, error) {
	query := `
		UPDATE users
		SET display_name = $2, version = version + 1
		WHERE id = $1 AND version = $3
		RETURNING id, email, password_hash, display_name, enabled, created_at, version
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, displayName, version))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	// No row matched: either the user is gone or the version is stale.
	if _, err := r.GetUserByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrVersionConflict
}

// scanUser scans a single row into a User model.
func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Enabled,
		&user.CreatedAt,
		&user.Version,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
