package chat

import "time"

// Roles a turn can carry. The server never stores tool or system turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn persists a single message exchange unit within a session.
// Turns are append-only: created once, never mutated.
type Turn struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	IsGenerated bool      `json:"isGenerated"`
	CreatedAt   time.Time `json:"createdAt"`
}
