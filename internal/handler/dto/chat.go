package dto

import (
	"time"

	"github.com/quillchat/quillchat/internal/model"
	"github.com/quillchat/quillchat/internal/service"
)

// CreateChatRequest represents the request body for creating a chat.
// Message is the opening user message of the conversation.
type CreateChatRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Message string `json:"message" validate:"required,max=65536"`
}

// SendMessageRequest represents the request body for one conversation turn.
type SendMessageRequest struct {
	Message string `json:"message" validate:"required,max=65536"`
}

// RenameChatRequest represents the request body for a title change.
// Version is the version from the caller's last read.
type RenameChatRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Version int    `json:"version" validate:"min=0"`
}

// ChatResponse represents a chat summary in API responses.
// Message bodies are never included here.
type ChatResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Version        int       `json:"version"`
}

// MessageResponse represents a single message in API responses.
type MessageResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatWithMessagesResponse represents a chat with its full history.
type ChatWithMessagesResponse struct {
	ChatResponse
	Messages []MessageResponse `json:"messages"`
}

// ChatListResponse represents the caller's chat list.
type ChatListResponse struct {
	Data []ChatResponse `json:"data"`
}

// ToChatResponse converts a Chat model to ChatResponse DTO.
func ToChatResponse(chat *model.Chat) *ChatResponse {
	return &ChatResponse{
		ID:             chat.ID,
		Title:          chat.Title,
		CreatedAt:      chat.CreatedAt,
		LastModifiedAt: chat.LastModifiedAt,
		Version:        chat.Version,
	}
}

// ToMessageResponse converts a Message model to MessageResponse DTO.
func ToMessageResponse(msg *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:        msg.ID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
}

// ToChatWithMessagesResponse converts a chat and its history to the
// combined response DTO. Messages keep their append order.
func ToChatWithMessagesResponse(cm *service.ChatWithMessages) *ChatWithMessagesResponse {
	messages := make([]MessageResponse, len(cm.Messages))
	for i, msg := range cm.Messages {
		messages[i] = *ToMessageResponse(msg)
	}
	return &ChatWithMessagesResponse{
		ChatResponse: *ToChatResponse(cm.Chat),
		Messages:     messages,
	}
}

// ToChatListResponse converts a slice of Chat models to ChatListResponse.
func ToChatListResponse(chats []*model.Chat) *ChatListResponse {
	data := make([]ChatResponse, len(chats))
	for i, chat := range chats {
		data[i] = *ToChatResponse(chat)
	}
	return &ChatListResponse{Data: data}
}
