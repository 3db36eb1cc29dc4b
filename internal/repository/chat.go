package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/quillchat/quillchat/internal/model"
)

// Common errors for chat repository operations.
var (
	ErrChatNotFound = errors.New("chat not found")
)

// CreateChatWithMessage inserts a chat together with its initial
// message in a single transaction. The message receives seq 1.
func (r *Repository) CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO chats (id, owner_id, title, created_at, last_modified_at, version)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, chat.ID, chat.OwnerID, chat.Title, chat.CreatedAt, chat.LastModifiedAt, chat.Version)
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}

		msg.ID = ulid.Make().String()
		msg.ChatID = chat.ID
		msg.Seq = 1
		msg.CreatedAt = chat.CreatedAt

		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		return nil
	})
}

// AppendMessage appends a message to a chat and bumps the chat's
// last_modified_at, all in one transaction. The chat row is locked for
// the duration so concurrent appends serialize; the new message gets
// seq = previous + 1 and a creation timestamp strictly greater than
// the previous one, even when the wall clock has not advanced.
func (r *Repository) AppendMessage(ctx context.Context, chatID string, sender model.Sender, text string) (*model.Message, error) {
	msg := &model.Message{
		ID:     ulid.Make().String(),
		ChatID: chatID,
		Sender: sender,
		Text:   text,
	}

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var exists string
		err := tx.QueryRow(ctx, `SELECT id FROM chats WHERE id = $1 FOR UPDATE`, chatID).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrChatNotFound
			}
			return fmt.Errorf("failed to lock chat: %w", err)
		}

		var lastSeq int64
		var lastCreatedAt time.Time
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(seq), 0), COALESCE(MAX(created_at), 'epoch'::timestamptz)
			FROM messages
			WHERE chat_id = $1
		`, chatID).Scan(&lastSeq, &lastCreatedAt)
		if err != nil {
			return fmt.Errorf("failed to read message head: %w", err)
		}

		msg.Seq = lastSeq + 1
		msg.CreatedAt = time.Now().UTC()
		if !msg.CreatedAt.After(lastCreatedAt) {
			msg.CreatedAt = lastCreatedAt.Add(time.Microsecond)
		}

		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE chats SET last_modified_at = $2 WHERE id = $1
		`, chatID, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to touch chat: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// GetChat retrieves a chat by its ID.
func (r *Repository) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at, last_modified_at, version
		FROM chats
		WHERE id = $1
	`

	chat, err := scanChat(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return chat, nil
}

// GetChatMessages retrieves all messages of a chat in append order.
// The result is a finite snapshot, re-fetchable at any time.
func (r *Repository) GetChatMessages(ctx context.Context, chatID string) ([]*model.Message, error) {
	query := `
		SELECT id, chat_id, seq, sender, text, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Seq, &msg.Sender, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// ListChatsByOwner retrieves all chats owned by a user, most recently
// modified first. Message bodies are not included.
func (r *Repository) ListChatsByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	query := `
		SELECT id, owner_id, title, created_at, last_modified_at, version
		FROM chats
		WHERE owner_id = $1
		ORDER BY last_modified_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []*model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.OwnerID, &chat.Title, &chat.CreatedAt, &chat.LastModifiedAt, &chat.Version); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, &chat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	return chats, nil
}

// UpdateChatTitle updates a chat's title using a compare-and-swap on
// the version counter. Fails with ErrVersionConflict when the stored
// version no longer matches and ErrChatNotFound when the chat is gone.
func (r *Repository) UpdateChatTitle(ctx context.Context, id, title string, version int) (*model.Chat, error) {
	query := `
		UPDATE chats
		SET title = $2, last_modified_at = $3, version = version + 1
		WHERE id = $1 AND version = $4
		RETURNING id, owner_id, title, created_at, last_modified_at, version
	`

	chat, err := scanChat(r.pool.QueryRow(ctx, query, id, title, time.Now().UTC(), version))
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update chat title: %w", err)
	}

	// No row matched: either the chat is gone or the version is stale.
	if _, err := r.GetChat(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrVersionConflict
}

// DeleteChat removes a chat and all its messages atomically.
// Returns false without error when the chat does not exist, so the
// operation is an idempotent no-op.
func (r *Repository) DeleteChat(ctx context.Context, id string) (bool, error) {
	deleted := false

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE chat_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}

		deleted = result.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

// insertMessage inserts a fully populated message row.
func insertMessage(ctx context.Context, tx pgx.Tx, msg *model.Message) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO messages (id, chat_id, seq, sender, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.ChatID, msg.Seq, msg.Sender, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// scanChat scans a single row into a Chat model.
func scanChat(row pgx.Row) (*model.Chat, error) {
	var chat model.Chat
	err := row.Scan(
		&chat.ID,
		&chat.OwnerID,
		&chat.Title,
		&chat.CreatedAt,
		&chat.LastModifiedAt,
		&chat.Version,
	)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}
