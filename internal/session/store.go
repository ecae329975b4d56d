package session

import (
	"context"
	"time"
)

// Message is one persisted turn of a conversation.
type Message struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store persists conversation history per chat session.
type Store interface {
	// Append adds a message to the session history.
	Append(ctx context.Context, id string, msg Message) error

	// History returns the session messages in order. An unknown session
	// yields an empty history, not an error.
	History(ctx context.Context, id string) ([]Message, error)

	// Clear removes all messages of the session.
	Clear(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// NewMessage builds a message with an estimated token count.
func NewMessage(role, content string) Message {
	return Message{
		Role:       role,
		Content:    content,
		TokenCount: EstimateTokens(content),
		Timestamp:  time.Now(),
	}
}

// EstimateTokens approximates the token count of a text. Four characters
// per token is close enough for history budgeting.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// Truncate trims the history to the given limits, keeping the most recent
// messages. The message limit applies first, then the token limit.
func Truncate(history []Message, tokenLimit, messageLimit int) []Message {
	if len(history) == 0 {
		return history
	}
	if messageLimit > 0 && len(history) > messageLimit {
		history = history[len(history)-messageLimit:]
	}
	if tokenLimit <= 0 {
		return history
	}
	total := 0
	for _, msg := range history {
		total += msg.TokenCount
	}
	for total > tokenLimit && len(history) > 0 {
		total -= history[0].TokenCount
		history = history[1:]
	}
	return history
}
