package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillchat/quillchat/internal/auth"
	"github.com/quillchat/quillchat/internal/handler/dto"
	"github.com/quillchat/quillchat/internal/service"
)

// ChatHandler handles HTTP requests for chat operations.
type ChatHandler struct {
	svc    *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/chat.
// The chat is created with its opening user message in one step.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	var req dto.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	chat, err := h.svc.CreateChat(r.Context(), authCtx.UserID, req.Title, req.Message)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToChatResponse(chat))
}

// List handles GET /api/v1/chat.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())

	chats, err := h.svc.ListChats(r.Context(), authCtx.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToChatListResponse(chats))
}

// Get handles GET /api/v1/chat/{id}.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())
	id := chi.URLParam(r, "id")

	cm, err := h.svc.GetChatWithMessages(r.Context(), authCtx.UserID, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToChatWithMessagesResponse(cm))
}

// Send handles POST /api/v1/chat/{id}.
// Runs one conversation turn and returns the assistant reply.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	reply, err := h.svc.RespondTo(r.Context(), authCtx.UserID, id, req.Message)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMessageResponse(reply))
}

// Rename handles PATCH /api/v1/chat/{id}.
func (h *ChatHandler) Rename(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req dto.RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", dto.ValidationMessage(err))
		return
	}

	chat, err := h.svc.RenameChat(r.Context(), authCtx.UserID, id, req.Title, req.Version)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("chat_renamed", "chat_id", chat.ID)

	writeJSON(w, http.StatusOK, dto.ToChatResponse(chat))
}

// Delete handles DELETE /api/v1/chat/{id}.
// Deleting an already-absent chat is a success: the end state is the same.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustAuthFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := h.svc.DeleteChat(r.Context(), authCtx.UserID, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
