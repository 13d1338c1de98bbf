// Package conversation persists coaching dialogues scoped by player
// identity: append, read, archive, delete, and aggregate statistics.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message roles in a stored transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored transcript entry. Timestamps are server-assigned
// on append.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolsUsed []string  `json:"toolsUsed,omitempty"`
}

// Conversation is a full dialogue record. Messages are append-only and
// ordered by timestamp; token counters only ever grow.
type Conversation struct {
	ID                uuid.UUID      `json:"id"`
	PlayerID          string         `json:"playerId"`
	Title             *string        `json:"title"`
	Messages          []Message      `json:"messages"`
	Context           map[string]any `json:"context,omitempty"`
	TotalInputTokens  int            `json:"totalInputTokens"`
	TotalOutputTokens int            `json:"totalOutputTokens"`
	ToolsUsed         []string       `json:"toolsUsed"`
	IsActive          bool           `json:"isActive"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Summary is the list-view projection of a conversation.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	Title        *string   `json:"title"`
	MessageCount int       `json:"messageCount"`
	Preview      string    `json:"preview"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TokenUsage is the per-append token delta added to the running totals.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Stats aggregates across all of a player's conversations, archived ones
// included.
type Stats struct {
	TotalConversations int      `json:"totalConversations"`
	TotalMessages      int      `json:"totalMessages"`
	TotalInputTokens   int      `json:"totalInputTokens"`
	TotalOutputTokens  int      `json:"totalOutputTokens"`
	UniqueToolsUsed    []string `json:"uniqueToolsUsed"`
}

// ListOptions controls ListForPlayer.
type ListOptions struct {
	Limit           int // <= 0 means DefaultListLimit
	IncludeInactive bool
}

// DefaultListLimit bounds ListForPlayer when the caller does not.
const DefaultListLimit = 20

// Derived-text length bounds.
const (
	maxTitleLen   = 60
	maxPreviewLen = 100
)
