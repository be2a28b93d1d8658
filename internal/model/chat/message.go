package chat

import "time"

// Message roles. Messages are append-only; prompt order is creation order.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message persists one side of a conversational turn.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Seq       int64     `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
