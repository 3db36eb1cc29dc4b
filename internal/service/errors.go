// Package service provides business logic for the application.
package service

import "errors"

// Service errors. Store-level failures are translated into these at
// the service boundary; handlers map them onto HTTP statuses.
var (
	// ErrInvalidCredentials covers unknown email, disabled account and
	// wrong password alike, so the response never reveals which it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")

	ErrUserNotFound    = errors.New("user not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrChatForbidden   = errors.New("chat belongs to another user")
	ErrVersionConflict = errors.New("stale version")

	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordTooShort    = errors.New("password too short")
	ErrDisplayNameTooShort = errors.New("display name too short")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title too long")
	ErrMessageRequired     = errors.New("message text is required")
	ErrMessageTooLong      = errors.New("message text too long")
	ErrInvalidSender       = errors.New("invalid sender")
)
