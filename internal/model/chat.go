// Package model defines domain entities for the application.
package model

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "USER"
	SenderAssistant Sender = "ASSISTANT"
)

// IsValid checks if the sender is a known value.
func (s Sender) IsValid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Chat limits.
const (
	MaxTitleLength   = 255
	MaxMessageLength = 65536
)

// Chat represents a conversation thread owned by one user.
// Messages are stored separately and related by ChatID.
type Chat struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Version        int       `json:"version"`
}

// Message represents one turn half inside a chat.
// Messages are append-only: created once, never edited or reordered.
// Within a chat they are totally ordered by (CreatedAt, Seq).
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Seq       int64     `json:"-"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
