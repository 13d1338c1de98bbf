package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akgolf/aicoach/internal/log"
)

const conversationCols = `id, player_id, title, messages, context,
	total_input_tokens, total_output_tokens, tools_used, is_active,
	created_at, updated_at`

const insertConversationSQL = `INSERT INTO ai_conversations (player_id, messages)
	VALUES ($1, $2)
	RETURNING ` + conversationCols

const selectConversationSQL = `SELECT ` + conversationCols + `
	FROM ai_conversations
	WHERE id = $1 AND player_id = $2`

const listConversationsSQL = `SELECT ` + conversationCols + `
	FROM ai_conversations
	WHERE player_id = $1 AND (is_active OR $2)
	ORDER BY updated_at DESC
	LIMIT $3`

const appendMessageSQL = `UPDATE ai_conversations
	SET messages = $3, title = $4,
		total_input_tokens = $5, total_output_tokens = $6,
		tools_used = $7, updated_at = now()
	WHERE id = $1 AND player_id = $2
	RETURNING ` + conversationCols

const renameConversationSQL = `UPDATE ai_conversations
	SET title = $3, updated_at = now()
	WHERE id = $1 AND player_id = $2`

const archiveConversationSQL = `UPDATE ai_conversations
	SET is_active = false, updated_at = now()
	WHERE id = $1 AND player_id = $2`

const deleteConversationSQL = `DELETE FROM ai_conversations
	WHERE id = $1 AND player_id = $2`

const statsSQL = `SELECT count(*),
		COALESCE(sum(jsonb_array_length(messages)), 0),
		COALESCE(sum(total_input_tokens), 0),
		COALESCE(sum(total_output_tokens), 0)
	FROM ai_conversations
	WHERE player_id = $1`

const statsToolsSQL = `SELECT DISTINCT unnest(tools_used)
	FROM ai_conversations
	WHERE player_id = $1`

// Store persists conversations in PostgreSQL.
//
// Every lookup and mutation filters by both conversation id and player id
// in the same statement, so a conversation owned by another player is
// indistinguishable from one that does not exist.
//
// AddMessage is read-modify-write without row locking. Two simultaneous
// appends to the same conversation can lose a token-counter update; that
// is an accepted limitation, a conversation normally has one writer.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a conversation Store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create starts a new active conversation with zero or one seed message.
func (s *Store) Create(ctx context.Context, playerID, initialMessage string) (*Conversation, error) {
	messages := []Message{}
	if initialMessage != "" {
		messages = append(messages, Message{
			Role:      RoleUser,
			Content:   initialMessage,
			Timestamp: time.Now().UTC(),
		})
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encoding messages: %w", err)
	}

	row := s.pool.QueryRow(ctx, insertConversationSQL, playerID, raw)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("conversation created", "conversation_id", conv.ID, "player_id", playerID)
	return conv, nil
}

// Get returns the conversation, or (nil, nil) when no conversation with
// that id belongs to the player.
func (s *Store) Get(ctx context.Context, id uuid.UUID, playerID string) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, selectConversationSQL, id, playerID)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return conv, nil
}

// ListForPlayer returns the player's conversations, most recently updated
// first. Archived conversations are excluded unless opts.IncludeInactive.
func (s *Store) ListForPlayer(ctx context.Context, playerID string, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx, listConversationsSQL, playerID, opts.IncludeInactive, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			Preview:      preview(conv.Messages),
			IsActive:     conv.IsActive,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return summaries, nil
}

// AddMessage appends one message with a server-assigned timestamp, adds the
// token delta to the running totals, and unions tool names into the stored
// set. The title is derived from the first user message exactly once, only
// while it is still null. Returns (nil, nil) when no matching conversation
// exists for the player.
func (s *Store) AddMessage(ctx context.Context, id uuid.UUID, playerID string, msg Message, usage *TokenUsage, toolsUsed []string) (*Conversation, error) {
	conv, err := s.Get(ctx, id, playerID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	msg.Timestamp = time.Now().UTC()
	if len(toolsUsed) > 0 {
		msg.ToolsUsed = toolsUsed
	}
	messages := append(conv.Messages, msg)

	title := conv.Title
	if title == nil {
		if derived := deriveTitle(messages); derived != "" {
			title = &derived
		}
	}

	inputTokens := conv.TotalInputTokens
	outputTokens := conv.TotalOutputTokens
	if usage != nil {
		inputTokens += usage.Input
		outputTokens += usage.Output
	}

	tools := unionTools(conv.ToolsUsed, toolsUsed)

	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encoding messages: %w", err)
	}

	row := s.pool.QueryRow(ctx, appendMessageSQL, id, playerID, raw, title, inputTokens, outputTokens, tools)
	updated, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Deleted between read and write.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}
	return updated, nil
}

// Rename sets an explicit title. Reports whether a matching row was updated.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, playerID, title string) (bool, error) {
	tag, err := s.pool.Exec(ctx, renameConversationSQL, id, playerID, title)
	if err != nil {
		return false, fmt.Errorf("renaming conversation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Archive soft-deletes the conversation (reversible).
func (s *Store) Archive(ctx context.Context, id uuid.UUID, playerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, archiveConversationSQL, id, playerID)
	if err != nil {
		return false, fmt.Errorf("archiving conversation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the conversation permanently.
func (s *Store) Delete(ctx context.Context, id uuid.UUID, playerID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteConversationSQL, id, playerID)
	if err != nil {
		return false, fmt.Errorf("deleting conversation: %w", err)
	}
	deleted := tag.RowsAffected() > 0
	if deleted {
		s.logger.Info("conversation deleted", "conversation_id", id, "player_id", playerID)
	}
	return deleted, nil
}

// StatsForPlayer aggregates across all of the player's conversations,
// active and archived alike.
func (s *Store) StatsForPlayer(ctx context.Context, playerID string) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, statsSQL, playerID).Scan(
		&stats.TotalConversations,
		&stats.TotalMessages,
		&stats.TotalInputTokens,
		&stats.TotalOutputTokens,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("querying conversation stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, statsToolsSQL, playerID)
	if err != nil {
		return Stats{}, fmt.Errorf("querying used tools: %w", err)
	}
	defer rows.Close()

	stats.UniqueToolsUsed = []string{}
	for rows.Next() {
		var tool string
		if err := rows.Scan(&tool); err != nil {
			return Stats{}, fmt.Errorf("scanning tool name: %w", err)
		}
		stats.UniqueToolsUsed = append(stats.UniqueToolsUsed, tool)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterating used tools: %w", err)
	}
	sort.Strings(stats.UniqueToolsUsed)

	return stats, nil
}

// scanConversation reads one row in conversationCols order.
func scanConversation(row pgx.Row) (*Conversation, error) {
	var (
		conv        Conversation
		rawMessages []byte
		rawContext  []byte
	)
	err := row.Scan(
		&conv.ID, &conv.PlayerID, &conv.Title, &rawMessages, &rawContext,
		&conv.TotalInputTokens, &conv.TotalOutputTokens, &conv.ToolsUsed,
		&conv.IsActive, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conv.Messages = []Message{}
	if len(rawMessages) > 0 {
		if err := json.Unmarshal(rawMessages, &conv.Messages); err != nil {
			return nil, fmt.Errorf("decoding messages: %w", err)
		}
	}
	if len(rawContext) > 0 {
		if err := json.Unmarshal(rawContext, &conv.Context); err != nil {
			return nil, fmt.Errorf("decoding context: %w", err)
		}
	}
	if conv.ToolsUsed == nil {
		conv.ToolsUsed = []string{}
	}
	return &conv, nil
}

// deriveTitle builds the lazy title from the first user message.
func deriveTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == RoleUser {
			return truncate(strings.TrimSpace(msg.Content), maxTitleLen)
		}
	}
	return ""
}

// preview is the truncated content of the most recent user message.
func preview(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return truncate(strings.TrimSpace(messages[i].Content), maxPreviewLen)
		}
	}
	return ""
}

// truncate keeps the result within max runes, ellipsis included.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

// unionTools appends names not already present, preserving first-seen order.
func unionTools(existing, added []string) []string {
	out := make([]string, 0, len(existing)+len(added))
	seen := make(map[string]struct{}, len(existing)+len(added))
	for _, lists := range [][]string{existing, added} {
		for _, name := range lists {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
