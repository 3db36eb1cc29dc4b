// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillchat/quillchat/internal/handler/dto"
	"github.com/quillchat/quillchat/internal/service"
)

// NotFound handles 404 responses for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service errors to HTTP responses.
// Unrecognized errors become an opaque 500; the detail goes to the log
// only, never to the client.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "CHAT_NOT_FOUND", "Chat not found")
	case errors.Is(err, service.ErrChatForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Chat belongs to another user")
	case errors.Is(err, service.ErrVersionConflict):
		writeError(w, http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently")
	case errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrDisplayNameTooShort),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrTitleTooLong),
		errors.Is(err, service.ErrMessageRequired),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidSender):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
