package model

import (
	"time"
)

// ConversationTurn is one message within a Q&A conversation.
type ConversationTurn struct {
	Role      string // "user" | "assistant" | "system"
	Content   string
	Timestamp time.Time
}

// Conversation is an in-memory chat grounded in one video transcript.
// It lives only for the duration of the process; nothing is persisted.
type Conversation struct {
	ID        string
	Model     string
	Turns     []ConversationTurn
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewConversation(id, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		Model:     model,
		Turns:     make([]ConversationTurn, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Conversation) AddTurn(role, content string) {
	c.Turns = append(c.Turns, ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	c.UpdatedAt = time.Now()
}

// RecentTurns returns the system turn (when present) plus the last n
// non-system turns, preserving order. The system turn carries the
// transcript grounding and must never be trimmed out.
func (c *Conversation) RecentTurns(n int) []ConversationTurn {
	if n <= 0 {
		return c.Turns
	}
	var sys []ConversationTurn
	rest := c.Turns
	if len(c.Turns) > 0 && c.Turns[0].Role == "system" {
		sys = c.Turns[:1]
		rest = c.Turns[1:]
	}
	if len(rest) > n {
		rest = rest[len(rest)-n:]
	}
	out := make([]ConversationTurn, 0, len(sys)+len(rest))
	out = append(out, sys...)
	out = append(out, rest...)
	return out
}
