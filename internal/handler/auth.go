package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quillchat/quillchat/internal/auth"
	"github.com/quillchat/quillchat/internal/handler/dto"
	"github.com/quillchat/quillchat/internal/service"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register handles POST /api/v1/auth/register.
// Succeeds with an empty object; the account details are not echoed
// back and the caller logs in separately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_registered", "user_id", user.ID)

	writeJSON(w, http.StatusOK, struct{}{})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{Token: token})
}

// Me handles GET /api/v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	user, err := h.svc.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// UpdateMe handles PATCH /api/v1/me.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), authCtx.UserID, req.DisplayName, req.Version)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("profile_updated", "user_id", user.ID)

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
