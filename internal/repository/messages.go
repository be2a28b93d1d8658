package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eargai/earg-backend/internal/model/chat"
)

// MessageRepository appends and lists chat messages. Messages are append-only
// and never mutated or deleted.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append persists a message. The autoincrement seq column keeps arrival order
// stable even when two messages share a creation timestamp.
func (r *MessageRepository) Append(ctx context.Context, m *chat.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO messages (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, m.ID, m.ChatID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if seq, err := res.LastInsertId(); err == nil {
		m.Seq = seq
	}
	return nil
}

// ListByChat returns the chat's messages in prompt order: ascending creation
// time, seq as tiebreaker.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID string) ([]chat.Message, error) {
	query := `SELECT seq, id, chat_id, role, content, created_at FROM messages
		WHERE chat_id = ? ORDER BY created_at ASC, seq ASC`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.Seq, &m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return result, nil
}
