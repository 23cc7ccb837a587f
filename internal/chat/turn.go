package chat

import (
	"strings"
	"time"
)

// SentinelPending is the reserved reply marker carried by a transient turn
// while its exchange is still in flight. The presentation layer renders the
// pending state purely from this value.
const SentinelPending = "..."

// Status tags a transcript entry on the client side. It is never serialized
// to the server; only durable turns cross the wire.
type Status string

const (
	StatusDurable Status = "durable"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Turn is one user message paired with its generated reply. JSON field names
// match the wire contract: userMessage, llmResponse, timestamp.
type Turn struct {
	// ID is assigned by the store at persistence time and immutable
	// thereafter. A transient client-side turn carries no ID.
	ID          string    `json:"id,omitempty"`
	UserMessage string    `json:"userMessage"`
	ModelReply  string    `json:"llmResponse"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Durable reports whether the turn has been confirmed written to the store.
func (t Turn) Durable() bool {
	return t.ID != ""
}

// ValidateMessage rejects empty or whitespace-only user messages before any
// external call is made.
func ValidateMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return &InvalidInputError{Message: "message must be a non-empty string"}
	}
	return nil
}
