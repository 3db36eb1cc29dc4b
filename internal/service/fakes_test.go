package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quillchat/quillchat/internal/model"
	"github.com/quillchat/quillchat/internal/repository"
)

// fakeUserStore is an in-memory UserStore with the same error
// semantics as the real repository, including atomic email uniqueness.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User // keyed by ID
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}

	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) UpdateUserProfile(ctx context.Context, id, displayName string, version int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
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

// fakeChatStore is an in-memory ChatStore reproducing the real
// store's transactional semantics: per-chat sequence numbers,
// strictly increasing timestamps and version CAS on title edits.
type fakeChatStore struct {
	mu       sync.Mutex
	chats    map[string]*model.Chat
	messages map[string][]*model.Message
	nextID   int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]*model.Message),
	}
}

func (f *fakeChatStore) CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	chatClone := *chat
	f.chats[chat.ID] = &chatClone

	f.nextID++
	msg.ID = fmt.Sprintf("msg-%04d", f.nextID)
	msg.ChatID = chat.ID
	msg.Seq = 1
	msg.CreatedAt = chat.CreatedAt

	msgClone := *msg
	f.messages[chat.ID] = []*model.Message{&msgClone}
	return nil
}

func (f *fakeChatStore) AppendMessage(ctx context.Context, chatID string, sender model.Sender, text string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chat, ok := f.chats[chatID]
	if !ok {
		return nil, repository.ErrChatNotFound
	}

	var lastSeq int64
	var lastCreatedAt time.Time
	if msgs := f.messages[chatID]; len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		lastSeq = last.Seq
		lastCreatedAt = last.CreatedAt
	}

	f.nextID++
	msg := &model.Message{
		ID:        fmt.Sprintf("msg-%04d", f.nextID),
		ChatID:    chatID,
		Seq:       lastSeq + 1,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if !msg.CreatedAt.After(lastCreatedAt) {
		msg.CreatedAt = lastCreatedAt.Add(time.Microsecond)
	}

	f.messages[chatID] = append(f.messages[chatID], msg)
	chat.LastModifiedAt = msg.CreatedAt

	clone := *msg
	return &clone, nil
}

func (f *fakeChatStore) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chat, ok := f.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	clone := *chat
	return &clone, nil
}

func (f *fakeChatStore) GetChatMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.messages[chatID]
	out := make([]*model.Message, 0, len(msgs))
	for _, m := range msgs {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeChatStore) ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Chat
	for _, chat := range f.chats {
		if chat.OwnerID == ownerID {
			clone := *chat
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeChatStore) UpdateChatTitle(ctx context.Context, id, title string, version int) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	chat, ok := f.chats[id]
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

func (f *fakeChatStore) DeleteChat(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.chats[id]; !ok {
		return false, nil
	}
	delete(f.chats, id)
	delete(f.messages, id)
	return true, nil
}

func (f *fakeChatStore) messageCount(chatID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[chatID])
}

// fakeResponder is a scripted Responder.
type fakeResponder struct {
	reply string
	err   error
	// block makes Generate wait for context cancellation, simulating
	// a backend that never answers.
	block bool

	mu    sync.Mutex
	calls int
}

func (f *fakeResponder) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
