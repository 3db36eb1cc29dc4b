package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quillchat/quillchat/internal/metrics"
	"github.com/quillchat/quillchat/internal/model"
)

const testResponderTimeout = 50 * time.Millisecond

type chatFixture struct {
	svc       *ChatService
	users     *fakeUserStore
	chats     *fakeChatStore
	responder *fakeResponder
	recorder  *metrics.InMemoryRecorder
	owner     *model.UserSummary
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	users := newFakeUserStore()
	chats := newFakeChatStore()
	resp := &fakeResponder{reply: "Hello there!"}
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := NewAuthService(users, staticTokenIssuer{})
	owner, err := authSvc.Register(context.Background(), "owner@example.com", "long-enough-password", "Owner")
	if err != nil {
		t.Fatalf("register owner: %v", err)
	}

	return &chatFixture{
		svc:       NewChatService(users, chats, resp, testResponderTimeout, logger, recorder),
		users:     users,
		chats:     chats,
		responder: resp,
		recorder:  recorder,
		owner:     owner,
	}
}

// staticTokenIssuer satisfies TokenIssuer for fixtures that never log in.
type staticTokenIssuer struct{}

func (staticTokenIssuer) Issue(subject string) (string, error) { return "token", nil }

func TestChatService_CreateChat_RoundTrip(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	got, err := fx.svc.GetChatWithMessages(ctx, fx.owner.ID, chat.ID)
	if err != nil {
		t.Fatalf("GetChatWithMessages: %v", err)
	}

	if got.Chat.Title != "T" {
		t.Errorf("expected title T, got %s", got.Chat.Title)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(got.Messages))
	}
	if got.Messages[0].Sender != model.SenderUser {
		t.Errorf("expected sender USER, got %s", got.Messages[0].Sender)
	}
	if got.Messages[0].Text != "hello" {
		t.Errorf("expected text hello, got %q", got.Messages[0].Text)
	}
}

func TestChatService_CreateChat_OwnerNotFound(t *testing.T) {
	fx := newChatFixture(t)

	_, err := fx.svc.CreateChat(context.Background(), "no-such-user", "T", "hello")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChatService_CreateChat_DisabledOwner(t *testing.T) {
	fx := newChatFixture(t)

	fx.users.mu.Lock()
	fx.users.users[fx.owner.ID].Enabled = false
	fx.users.mu.Unlock()

	_, err := fx.svc.CreateChat(context.Background(), fx.owner.ID, "T", "hello")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for disabled owner, got %v", err)
	}
}

func TestChatService_CreateChat_Validation(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()
	longTitle := make([]byte, model.MaxTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'x'
	}

	if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, "", "hello"); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, string(longTitle), "hello"); !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("expected ErrTitleTooLong, got %v", err)
	}
	if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", ""); !errors.Is(err, ErrMessageRequired) {
		t.Errorf("expected ErrMessageRequired, got %v", err)
	}

	// Limits count characters: a max-length multibyte title is several
	// times longer in bytes and must still pass.
	wideTitle := strings.Repeat("ü", model.MaxTitleLength)
	if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, wideTitle, "hello"); err != nil {
		t.Errorf("max-length multibyte title rejected: %v", err)
	}
	if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, wideTitle+"ü", "hello"); !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("expected ErrTitleTooLong one rune past the limit, got %v", err)
	}
}

func TestChatService_AppendMessage_Ordering(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "Ordering", "m0")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	senders := []model.Sender{
		model.SenderAssistant, model.SenderUser,
		model.SenderAssistant, model.SenderUser, model.SenderAssistant,
	}
	for i, sender := range senders {
		text := fmt.Sprintf("m%d", i+1)
		if _, err := fx.svc.AppendMessage(ctx, chat.ID, text, sender); err != nil {
			t.Fatalf("AppendMessage %d: %v", i+1, err)
		}
	}

	got, err := fx.svc.GetChatWithMessages(ctx, fx.owner.ID, chat.ID)
	if err != nil {
		t.Fatalf("GetChatWithMessages: %v", err)
	}

	if len(got.Messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(got.Messages))
	}
	for i, msg := range got.Messages {
		want := fmt.Sprintf("m%d", i)
		if msg.Text != want {
			t.Errorf("position %d: expected %s, got %s", i, want, msg.Text)
		}
		if i > 0 && !msg.CreatedAt.After(got.Messages[i-1].CreatedAt) {
			t.Errorf("position %d: timestamp %v not strictly after %v",
				i, msg.CreatedAt, got.Messages[i-1].CreatedAt)
		}
	}
}

func TestChatService_AppendMessage_Errors(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.AppendMessage(ctx, "no-such-chat", "hi", model.SenderUser); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got %v", err)
	}

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	if _, err := fx.svc.AppendMessage(ctx, chat.ID, "hi", model.Sender("OLLAMA")); !errors.Is(err, ErrInvalidSender) {
		t.Errorf("expected ErrInvalidSender, got %v", err)
	}
}

func TestChatService_RespondTo_Success(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	reply, err := fx.svc.RespondTo(ctx, fx.owner.ID, chat.ID, "hi")
	if err != nil {
		t.Fatalf("RespondTo: %v", err)
	}

	if reply.Sender != model.SenderAssistant {
		t.Errorf("expected ASSISTANT reply, got %s", reply.Sender)
	}
	if reply.Text != "Hello there!" {
		t.Errorf("unexpected reply text %q", reply.Text)
	}

	got, _ := fx.svc.GetChatWithMessages(ctx, fx.owner.ID, chat.ID)
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages (initial + turn), got %d", len(got.Messages))
	}
	if got.Messages[1].Text != "hi" || got.Messages[1].Sender != model.SenderUser {
		t.Errorf("user half of the turn missing: %+v", got.Messages[1])
	}
}

func TestChatService_RespondTo_GatewayError_Fallback(t *testing.T) {
	fx := newChatFixture(t)
	fx.responder.err = errors.New("connection refused")
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	reply, err := fx.svc.RespondTo(ctx, fx.owner.ID, chat.ID, "hi")
	if err != nil {
		t.Fatalf("RespondTo must absorb gateway errors, got %v", err)
	}

	if reply.Sender != model.SenderAssistant {
		t.Errorf("expected ASSISTANT fallback, got %s", reply.Sender)
	}
	if reply.Text != fallbackReply {
		t.Errorf("expected fallback reply, got %q", reply.Text)
	}

	got, _ := fx.svc.GetChatWithMessages(ctx, fx.owner.ID, chat.ID)
	if len(got.Messages) != 3 {
		t.Fatalf("expected user message plus fallback, got %d messages", len(got.Messages))
	}
	if got.Messages[1].Text != "hi" {
		t.Error("the user message must land even when the gateway fails")
	}

	if fx.recorder.Snapshot().ResponderFallbacks != 1 {
		t.Error("expected one recorded fallback")
	}
}

func TestChatService_RespondTo_Timeout_Fallback(t *testing.T) {
	fx := newChatFixture(t)
	fx.responder.block = true
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	start := time.Now()
	reply, err := fx.svc.RespondTo(ctx, fx.owner.ID, chat.ID, "hi")
	if err != nil {
		t.Fatalf("RespondTo must absorb timeouts, got %v", err)
	}

	if elapsed := time.Since(start); elapsed > 10*testResponderTimeout {
		t.Errorf("turn took %v, timeout did not bound the gateway call", elapsed)
	}
	if reply.Text != fallbackReply {
		t.Errorf("expected fallback reply after timeout, got %q", reply.Text)
	}
	if fx.responder.callCount() != 1 {
		t.Errorf("expected a single gateway attempt, got %d", fx.responder.callCount())
	}
}

func TestChatService_Authorization(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	authSvc := NewAuthService(fx.users, staticTokenIssuer{})
	intruder, err := authSvc.Register(ctx, "intruder@example.com", "long-enough-password", "Intruder")
	if err != nil {
		t.Fatalf("register intruder: %v", err)
	}

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "Private", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	if _, err := fx.svc.GetChatWithMessages(ctx, intruder.ID, chat.ID); !errors.Is(err, ErrChatForbidden) {
		t.Errorf("GET by non-owner: expected ErrChatForbidden, got %v", err)
	}
	if _, err := fx.svc.RespondTo(ctx, intruder.ID, chat.ID, "hi"); !errors.Is(err, ErrChatForbidden) {
		t.Errorf("POST by non-owner: expected ErrChatForbidden, got %v", err)
	}
	if _, err := fx.svc.RenameChat(ctx, intruder.ID, chat.ID, "Mine", chat.Version); !errors.Is(err, ErrChatForbidden) {
		t.Errorf("rename by non-owner: expected ErrChatForbidden, got %v", err)
	}
	if _, err := fx.svc.DeleteChat(ctx, intruder.ID, chat.ID); !errors.Is(err, ErrChatForbidden) {
		t.Errorf("delete by non-owner: expected ErrChatForbidden, got %v", err)
	}

	// Nonexistent chat is NotFound for any caller, never Forbidden.
	if _, err := fx.svc.GetChatWithMessages(ctx, intruder.ID, "no-such-chat"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got %v", err)
	}
}

func TestChatService_RenameChat_VersionConflict(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "Old", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, title := range []string{"New A", "New B"} {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, err := fx.svc.RenameChat(ctx, fx.owner.ID, chat.ID, title, chat.Version)
			results <- err
		}(title)
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrVersionConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || conflicted != 1 {
		t.Errorf("expected exactly one success and one conflict, got %d/%d", succeeded, conflicted)
	}
}

func TestChatService_DeleteChat(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	chat, err := fx.svc.CreateChat(ctx, fx.owner.ID, "T", "hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := fx.svc.AppendMessage(ctx, chat.ID, fmt.Sprintf("m%d", i), model.SenderUser); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	deleted, err := fx.svc.DeleteChat(ctx, fx.owner.ID, chat.ID)
	if err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if !deleted {
		t.Error("expected true for existing chat")
	}
	if n := fx.chats.messageCount(chat.ID); n != 0 {
		t.Errorf("expected all messages removed, %d remain", n)
	}

	// Idempotent no-op on repeat.
	deleted, err = fx.svc.DeleteChat(ctx, fx.owner.ID, chat.ID)
	if err != nil {
		t.Fatalf("second DeleteChat: %v", err)
	}
	if deleted {
		t.Error("expected false for already-deleted chat")
	}
}

func TestChatService_ListChats(t *testing.T) {
	fx := newChatFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fx.svc.CreateChat(ctx, fx.owner.ID, fmt.Sprintf("Chat %d", i), "hello"); err != nil {
			t.Fatalf("CreateChat: %v", err)
		}
	}

	chats, err := fx.svc.ListChats(ctx, fx.owner.ID)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 3 {
		t.Errorf("expected 3 chats, got %d", len(chats))
	}

	other, err := fx.svc.ListChats(ctx, "someone-else")
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no chats for other owner, got %d", len(other))
	}
}
