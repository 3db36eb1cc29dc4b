// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/quillchat/quillchat/internal/model"
)

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=3"`
}

// LoginRequest represents the request body for credential login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token issued on successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// UpdateProfileRequest represents the request body for profile edits.
// Version is the version from the caller's last read.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=3"`
	Version     int    `json:"version" validate:"min=0"`
}

// UserResponse represents a user in API responses.
// It never carries credential material.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Version     int       `json:"version"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a UserSummary to UserResponse DTO.
func ToUserResponse(u *model.UserSummary) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		Version:     u.Version,
	}
}
