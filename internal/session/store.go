// Package session provides keyed conversation history storage.
package session

import (
	"strings"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalizes a caller-supplied role string. Matching is
// case-insensitive; anything that is not "assistant" is treated as user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAssistant)) {
		return RoleAssistant
	}
	return RoleUser
}

// Turn is one message in a conversation. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the session history contract. Sessions are created lazily on
// first access and are append-only; turn order is conversation order.
type Store interface {
	// Append adds a turn to the session, creating it if absent.
	// Concurrent appends to one session serialize in arrival order.
	Append(sessionID string, role Role, content string) error

	// Turns returns a copy of the session's turns in order. A missing
	// session yields an empty slice, not an error.
	Turns(sessionID string) ([]Turn, error)

	// Stats returns store-level counters for observability.
	Stats() map[string]any

	// Close releases any underlying resources.
	Close() error
}
