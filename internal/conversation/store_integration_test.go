//go:build integration
// +build integration

package conversation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/testutil"
)

func TestConversationStore_CreateAndGet_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conv, err := store.Create(ctx, "player-1", "Hvordan blir jeg bedre på putting?")
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.NotEqual(t, uuid.Nil, conv.ID)
	assert.Equal(t, "player-1", conv.PlayerID)
	assert.True(t, conv.IsActive)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, RoleUser, conv.Messages[0].Role)
	assert.Nil(t, conv.Title, "title is only derived when a message is appended")
	assert.Zero(t, conv.TotalInputTokens)

	retrieved, err := store.Get(ctx, conv.ID, "player-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, conv.ID, retrieved.ID)
	assert.Equal(t, conv.Messages[0].Content, retrieved.Messages[0].Content)
}

func TestConversationStore_Ownership_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conv, err := store.Create(ctx, "player-1", "hei")
	require.NoError(t, err)

	// A different player gets (nil, nil), indistinguishable from a missing id.
	other, err := store.Get(ctx, conv.ID, "player-2")
	require.NoError(t, err)
	assert.Nil(t, other)

	updated, err := store.AddMessage(ctx, conv.ID, "player-2", Message{Role: RoleUser, Content: "min nå"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, updated)

	renamed, err := store.Rename(ctx, conv.ID, "player-2", "kapret")
	require.NoError(t, err)
	assert.False(t, renamed)

	deleted, err := store.Delete(ctx, conv.ID, "player-2")
	require.NoError(t, err)
	assert.False(t, deleted)

	// The owner still sees an untouched conversation.
	mine, err := store.Get(ctx, conv.ID, "player-1")
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Len(t, mine.Messages, 1)
}

func TestConversationStore_AddMessage_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conv, err := store.Create(ctx, "player-1", "")
	require.NoError(t, err)
	require.Empty(t, conv.Messages)

	updated, err := store.AddMessage(ctx, conv.ID, "player-1",
		Message{Role: RoleUser, Content: "Hva bør jeg trene på denne uken?"}, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Len(t, updated.Messages, 1)
	assert.False(t, updated.Messages[0].Timestamp.IsZero(), "timestamp is assigned server-side")
	require.NotNil(t, updated.Title)
	assert.Equal(t, "Hva bør jeg trene på denne uken?", *updated.Title)

	updated, err = store.AddMessage(ctx, conv.ID, "player-1",
		Message{Role: RoleAssistant, Content: "Fokuser på nærspill."},
		&TokenUsage{Input: 120, Output: 45},
		[]string{"get_player_training_history", "get_player_goals"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Len(t, updated.Messages, 2)
	assert.Equal(t, 120, updated.TotalInputTokens)
	assert.Equal(t, 45, updated.TotalOutputTokens)
	assert.Equal(t, []string{"get_player_training_history", "get_player_goals"}, updated.ToolsUsed)
	assert.Equal(t, []string{"get_player_training_history", "get_player_goals"}, updated.Messages[1].ToolsUsed)

	// Title sticks to the first user message; tools and tokens accumulate.
	updated, err = store.AddMessage(ctx, conv.ID, "player-1",
		Message{Role: RoleAssistant, Content: "Og litt bunkertrening."},
		&TokenUsage{Input: 30, Output: 10},
		[]string{"get_player_goals", "get_upcoming_tournaments"})
	require.NoError(t, err)
	assert.Equal(t, "Hva bør jeg trene på denne uken?", *updated.Title)
	assert.Equal(t, 150, updated.TotalInputTokens)
	assert.Equal(t, 55, updated.TotalOutputTokens)
	assert.Equal(t,
		[]string{"get_player_training_history", "get_player_goals", "get_upcoming_tournaments"},
		updated.ToolsUsed, "tools dedupe in first-seen order")
}

func TestConversationStore_ListForPlayer_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Create(ctx, "player-1", "første")
	require.NoError(t, err)
	second, err := store.Create(ctx, "player-1", "andre")
	require.NoError(t, err)
	_, err = store.Create(ctx, "player-2", "ikke min")
	require.NoError(t, err)

	// Touching the first conversation moves it to the top.
	_, err = store.AddMessage(ctx, first.ID, "player-1",
		Message{Role: RoleAssistant, Content: "svar"}, nil, nil)
	require.NoError(t, err)

	summaries, err := store.ListForPlayer(ctx, "player-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Equal(t, 2, summaries[0].MessageCount)
	assert.Equal(t, "første", summaries[0].Preview, "preview is the last user message")

	// Archived conversations disappear unless asked for.
	archived, err := store.Archive(ctx, second.ID, "player-1")
	require.NoError(t, err)
	assert.True(t, archived)

	summaries, err = store.ListForPlayer(ctx, "player-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summaries, err = store.ListForPlayer(ctx, "player-1", ListOptions{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.False(t, summaries[1].IsActive)
}

func TestConversationStore_DeletePermanent_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conv, err := store.Create(ctx, "player-1", "slett meg")
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, conv.ID, "player-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	gone, err := store.Get(ctx, conv.ID, "player-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Deleting again reports no row.
	deleted, err = store.Delete(ctx, conv.ID, "player-1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestConversationStore_Stats_Integration(t *testing.T) {
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	conv, err := store.Create(ctx, "player-1", "hei")
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, conv.ID, "player-1",
		Message{Role: RoleAssistant, Content: "hei!"},
		&TokenUsage{Input: 10, Output: 5},
		[]string{"get_player_goals"})
	require.NoError(t, err)

	other, err := store.Create(ctx, "player-1", "")
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, other.ID, "player-1",
		Message{Role: RoleUser, Content: "turneringer?"}, nil, nil)
	require.NoError(t, err)
	_, err = store.AddMessage(ctx, other.ID, "player-1",
		Message{Role: RoleAssistant, Content: "to stykker"},
		&TokenUsage{Input: 20, Output: 8},
		[]string{"get_upcoming_tournaments", "get_player_goals"})
	require.NoError(t, err)

	stats, err := store.StatsForPlayer(ctx, "player-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalConversations)
	assert.Equal(t, 4, stats.TotalMessages)
	assert.Equal(t, 30, stats.TotalInputTokens)
	assert.Equal(t, 13, stats.TotalOutputTokens)
	assert.Equal(t, []string{"get_player_goals", "get_upcoming_tournaments"}, stats.UniqueToolsUsed)
}
