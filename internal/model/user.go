// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize
	DisplayName  string    `json:"display_name"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	Version      int       `json:"version"`
}

// ToSummary converts a User to its public UserSummary.
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		Version:     u.Version,
	}
}

// UserSummary is the outward-facing view of a user.
// It never carries credential material. Version is included so
// clients can send it back on profile edits.
type UserSummary struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Version     int       `json:"version"`
}

// AuthContext holds the authenticated caller identity.
// This is injected into the request context by the auth middleware.
type AuthContext struct {
	UserID string
	Email  string
}
