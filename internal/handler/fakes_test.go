package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/quillchat/quillchat/internal/model"
	"github.com/quillchat/quillchat/internal/repository"
	"github.com/quillchat/quillchat/internal/service"
)

// memStore is an in-memory store backing handler tests. It implements
// both service.UserStore and service.ChatStore with the repository's
// error semantics.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	chats    map[string]*model.Chat
	messages map[string][]*model.Message
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]*model.Message),
	}
}

func (s *memStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) UpdateUserProfile(ctx context.Context, id, displayName string, version int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if u.Version != version {
		return nil, repository.ErrVersionConflict
	}
	u.DisplayName = displayName
	u.Version++
	clone := *u
	return &clone, nil
}

func (s *memStore) CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatClone := *chat
	s.chats[chat.ID] = &chatClone

	s.nextID++
	msg.ID = fmt.Sprintf("msg-%04d", s.nextID)
	msg.ChatID = chat.ID
	msg.Seq = 1
	msg.CreatedAt = chat.CreatedAt

	msgClone := *msg
	s.messages[chat.ID] = []*model.Message{&msgClone}
	return nil
}

func (s *memStore) AppendMessage(ctx context.Context, chatID string, sender model.Sender, text string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return nil, repository.ErrChatNotFound
	}

	var lastSeq int64
	var lastCreatedAt time.Time
	if msgs := s.messages[chatID]; len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		lastSeq = last.Seq
		lastCreatedAt = last.CreatedAt
	}

	s.nextID++
	msg := &model.Message{
		ID:        fmt.Sprintf("msg-%04d", s.nextID),
		ChatID:    chatID,
		Seq:       lastSeq + 1,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if !msg.CreatedAt.After(lastCreatedAt) {
		msg.CreatedAt = lastCreatedAt.Add(time.Microsecond)
	}

	s.messages[chatID] = append(s.messages[chatID], msg)
	chat.LastModifiedAt = msg.CreatedAt

	clone := *msg
	return &clone, nil
}

func (s *memStore) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	clone := *chat
	return &clone, nil
}

func (s *memStore) GetChatMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (s *memStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Chat
	for _, chat := range s.chats {
		if chat.OwnerID == ownerID {
			clone := *chat
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memStore) UpdateChatTitle(ctx context.Context, id, title string, version int) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	if chat.Version != version {
		return nil, repository.ErrVersionConflict
	}
	chat.Title = title
	chat.Version++
	chat.LastModifiedAt = time.Now().UTC()
	clone := *chat
	return &clone, nil
}

func (s *memStore) DeleteChat(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; !ok {
		return false, nil
	}
	delete(s.chats, id)
	delete(s.messages, id)
	return true, nil
}

// scriptedResponder returns a fixed reply or error.
type scriptedResponder struct {
	reply string
	err   error
}

func (r *scriptedResponder) Generate(ctx context.Context, prompt string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ service.UserStore = (*memStore)(nil)
var _ service.ChatStore = (*memStore)(nil)
