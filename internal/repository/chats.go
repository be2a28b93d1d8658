package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eargai/earg-backend/internal/model/chat"
)

// ChatRepository stores chats, each owned by exactly one user.
type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create inserts a new chat and fills in id and creation time when absent.
func (r *ChatRepository) Create(ctx context.Context, c *chat.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Title == "" {
		c.Title = "New Chat"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO chats (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.Title, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

// Get returns the chat with the given id, or ErrChatNotFound.
func (r *ChatRepository) Get(ctx context.Context, id string) (*chat.Chat, error) {
	query := `SELECT id, user_id, title, created_at FROM chats WHERE id = ?`

	var c chat.Chat
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select chat: %w", err)
	}
	return &c, nil
}

// ListByUser returns the user's chats, newest first.
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]chat.Chat, error) {
	query := `SELECT id, user_id, title, created_at FROM chats
		WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select chats: %w", err)
	}
	defer rows.Close()

	var result []chat.Chat
	for rows.Next() {
		var c chat.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return result, nil
}
