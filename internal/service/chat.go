package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/quillchat/quillchat/internal/metrics"
	"github.com/quillchat/quillchat/internal/model"
	"github.com/quillchat/quillchat/internal/repository"
	"github.com/quillchat/quillchat/internal/responder"
)

// fallbackReply is appended as the assistant turn when the responder
// backend fails or times out. The conversation is never left with a
// dangling unanswered user message.
const fallbackReply = "I'm not talking to you right now..."

// ChatStore is the slice of the repository the chat service needs.
type ChatStore interface {
	CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error
	AppendMessage(ctx context.Context, chatID string, sender model.Sender, text string) (*model.Message, error)
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	GetChatMessages(ctx context.Context, chatID string) ([]*model.Message, error)
	ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error)
	UpdateChatTitle(ctx context.Context, id, title string, version int) (*model.Chat, error)
	DeleteChat(ctx context.Context, id string) (bool, error)
}

// ChatWithMessages bundles a chat with its ordered message history.
type ChatWithMessages struct {
	Chat     *model.Chat
	Messages []*model.Message
}

// ChatService manages the conversation lifecycle: chat creation,
// ordered message appends, assistant turns and deletion.
type ChatService struct {
	users     UserStore
	chats     ChatStore
	responder responder.Responder
	timeout   time.Duration
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewChatService creates a new ChatService. timeout bounds every
// responder call.
func NewChatService(users UserStore, chats ChatStore, resp responder.Responder, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *ChatService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ChatService{
		users:     users,
		chats:     chats,
		responder: resp,
		timeout:   timeout,
		logger:    logger,
		metrics:   recorder,
	}
}

// CreateChat creates a chat owned by ownerID with its initial user
// message, in one transaction. The first assistant reply is not
// generated here; that is a separate RespondTo call.
func (s *ChatService) CreateChat(ctx context.Context, ownerID, title, initialMessage string) (*model.Chat, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateMessageText(initialMessage); err != nil {
		return nil, err
	}

	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup owner: %w", err)
	}
	if !owner.Enabled {
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:             uuid.New().String(),
		OwnerID:        owner.ID,
		Title:          title,
		CreatedAt:      now,
		LastModifiedAt: now,
		Version:        0,
	}
	msg := &model.Message{
		Sender: model.SenderUser,
		Text:   initialMessage,
	}

	if err := s.chats.CreateChatWithMessage(ctx, chat, msg); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	s.metrics.IncChatCreated()
	s.metrics.IncMessageAppended(string(model.SenderUser))
	s.logger.Info("chat_created", "chat_id", chat.ID, "owner_id", owner.ID)

	return chat, nil
}

// AppendMessage appends one message to a chat. This is the sole
// mutation path for conversation history: messages are never inserted
// out of order, edited or reordered afterwards.
func (s *ChatService) AppendMessage(ctx context.Context, chatID, text string, sender model.Sender) (*model.Message, error) {
	if !sender.IsValid() {
		return nil, ErrInvalidSender
	}
	if err := validateMessageText(text); err != nil {
		return nil, err
	}

	msg, err := s.chats.AppendMessage(ctx, chatID, sender, text)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("append message: %w", err)
	}

	s.metrics.IncMessageAppended(string(sender))
	return msg, nil
}

// RespondTo runs one conversation turn for the chat's owner: append
// the user message, ask the responder for a reply within the
// configured timeout, then append the reply. When the responder fails
// or times out the turn still completes, with the fixed fallback reply
// as the assistant message.
func (s *ChatService) RespondTo(ctx context.Context, callerID, chatID, userText string) (*model.Message, error) {
	if _, err := s.authorizeChat(ctx, callerID, chatID); err != nil {
		return nil, err
	}

	if _, err := s.AppendMessage(ctx, chatID, userText, model.SenderUser); err != nil {
		return nil, err
	}

	reply := s.generateReply(ctx, chatID, userText)

	return s.AppendMessage(ctx, chatID, reply, model.SenderAssistant)
}

// generateReply asks the responder for a reply, falling back to the
// canned message on any error. Single attempt, bounded by s.timeout.
func (s *ChatService) generateReply(ctx context.Context, chatID, prompt string) string {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.responder.Generate(genCtx, prompt)
	s.metrics.ObserveResponderDuration(time.Since(start))

	if err != nil {
		s.metrics.IncResponderFallback()
		s.logger.Warn("responder_fallback",
			"chat_id", chatID,
			"error", err.Error(),
			"elapsed", time.Since(start).String(),
		)
		return fallbackReply
	}
	if reply == "" {
		s.metrics.IncResponderFallback()
		return fallbackReply
	}
	return reply
}

// GetChatWithMessages returns a chat owned by callerID together with
// its full message history in append order.
func (s *ChatService) GetChatWithMessages(ctx context.Context, callerID, chatID string) (*ChatWithMessages, error) {
	chat, err := s.authorizeChat(ctx, callerID, chatID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chats.GetChatMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	return &ChatWithMessages{Chat: chat, Messages: messages}, nil
}

// ListChats returns summaries of all chats owned by callerID.
// Message bodies are never included.
func (s *ChatService) ListChats(ctx context.Context, callerID string) ([]*model.Chat, error) {
	chats, err := s.chats.ListChatsByOwner(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// RenameChat changes a chat's title. The version must match the
// caller's last read or the write fails with ErrVersionConflict.
func (s *ChatService) RenameChat(ctx context.Context, callerID, chatID, title string, version int) (*model.Chat, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	if _, err := s.authorizeChat(ctx, callerID, chatID); err != nil {
		return nil, err
	}

	chat, err := s.chats.UpdateChatTitle(ctx, chatID, title, version)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChatNotFound):
			return nil, ErrChatNotFound
		case errors.Is(err, repository.ErrVersionConflict):
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("rename chat: %w", err)
	}

	return chat, nil
}

// DeleteChat removes a chat and all its messages atomically. Returns
// false when the chat does not exist (idempotent no-op).
func (s *ChatService) DeleteChat(ctx context.Context, callerID, chatID string) (bool, error) {
	if _, err := s.authorizeChat(ctx, callerID, chatID); err != nil {
		if errors.Is(err, ErrChatNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.chats.DeleteChat(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("delete chat: %w", err)
	}

	if deleted {
		s.metrics.IncChatDeleted()
		s.logger.Info("chat_deleted", "chat_id", chatID, "owner_id", callerID)
	}
	return deleted, nil
}

// authorizeChat loads the chat and enforces ownership. A chat that
// does not exist is ErrChatNotFound; one that exists but belongs to
// someone else is ErrChatForbidden. The two are never conflated, and
// neither error carries chat content.
func (s *ChatService) authorizeChat(ctx context.Context, callerID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("load chat: %w", err)
	}

	if chat.OwnerID != callerID {
		return nil, ErrChatForbidden
	}
	return chat, nil
}

// Limits count characters, not bytes, matching the char_length checks
// in the schema.
func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateMessageText(text string) error {
	if text == "" {
		return ErrMessageRequired
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
