//go:build integration
// +build integration

package playerdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/testutil"
)

func newIntegrationStore(t *testing.T) (*Store, *testutil.TestDB) {
	t.Helper()
	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := NewStore(testDB.Pool, log.NewNop())
	require.NoError(t, err)
	return store, testDB
}

func TestPlayerStore_TestResults_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()
	testDB.SeedPlayer(t, "player-1", "tenant-1", "Ola Nordmann", "F")

	var testID string
	err := testDB.Pool.QueryRow(ctx,
		`INSERT INTO tests (name, category, unit) VALUES ('Putting 3m', 'putting', 'treff') RETURNING id`).
		Scan(&testID)
	require.NoError(t, err)

	for i, day := range []string{"2026-08-01", "2026-08-10", "2026-08-20"} {
		_, err = testDB.Pool.Exec(ctx,
			`INSERT INTO test_results (player_id, test_id, value, passed, category_requirement, test_date)
			 VALUES ($1, $2, $3, $4, 8, $5)`,
			"player-1", testID, float64(5+i), i == 2, day)
		require.NoError(t, err)
	}

	report, err := store.TestResults(ctx, "player-1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "2026-08-20", report.Results[0].Date, "newest first")
	assert.Equal(t, "Putting 3m", report.Results[0].TestName)
	assert.Equal(t, "treff", report.Results[0].Unit)
	require.NotNil(t, report.Results[0].Value)
	assert.Equal(t, 7.0, *report.Results[0].Value)

	filtered, err := store.TestResults(ctx, "player-1", 10, "driving")
	require.NoError(t, err)
	assert.Zero(t, filtered.Count)
	assert.Empty(t, filtered.Results)
}

func TestPlayerStore_TrainingHistory_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()
	testDB.SeedPlayer(t, "player-1", "tenant-1", "Ola Nordmann", "F")

	recent := time.Now().AddDate(0, 0, -3).Format("2006-01-02")
	old := time.Now().AddDate(0, 0, -90).Format("2006-01-02")

	seed := []struct {
		name     *string
		typ      string
		duration int
		status   string
		date     string
	}{
		{strPtr("Puttingøkt"), "putting", 60, "completed", recent},
		{nil, "driving", 45, "completed", recent},
		{strPtr("Banespill"), "on_course", 120, "assigned", recent},
		{strPtr("Gammel økt"), "putting", 60, "completed", old},
	}
	for _, s := range seed {
		_, err := testDB.Pool.Exec(ctx,
			`INSERT INTO training_sessions (player_id, name, session_type, estimated_duration, status, assigned_date)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			"player-1", s.name, s.typ, s.duration, s.status, s.date)
		require.NoError(t, err)
	}

	report, err := store.TrainingHistory(ctx, "player-1", 30)
	require.NoError(t, err)
	assert.Equal(t, "Siste 30 dager", report.Period)
	assert.Equal(t, 2, report.TotalSessions, "only completed sessions in the window count")
	assert.Equal(t, 105, report.TotalMinutes)
	assert.Equal(t, 1.8, report.TotalHours)
	assert.Equal(t, 67, report.CompletionRate)
	assert.Equal(t, map[string]int{"putting": 60, "driving": 45}, report.ByType)
	require.Len(t, report.RecentSessions, 3)

	// Sessions without a name fall back to the generic label.
	var sawFallback bool
	for _, sess := range report.RecentSessions {
		if sess.Name == "Treningsøkt" {
			sawFallback = true
		}
	}
	assert.True(t, sawFallback)
}

func TestPlayerStore_GoalsAndCategory_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()

	_, err := testDB.Pool.Exec(ctx,
		`INSERT INTO players (id, tenant_id, name, category, handicap, goals)
		 VALUES ('player-1', 'tenant-1', 'Kari Nordmann', 'F', 12.4, '["Nå kategori E", "Handicap under 10"]')`)
	require.NoError(t, err)

	_, err = testDB.Pool.Exec(ctx,
		`INSERT INTO breaking_points (player_id, specific_area, process_category, description, progress_percent, status)
		 VALUES ('player-1', 'Lange putter', 'teknisk', 'Distansekontroll over 10m', 40, 'active'),
		        ('player-1', 'Utslag', 'teknisk', NULL, 10, 'resolved')`)
	require.NoError(t, err)

	goals, err := store.Goals(ctx, "player-1")
	require.NoError(t, err)
	assert.JSONEq(t, `["Nå kategori E", "Handicap under 10"]`, string(goals.Goals))
	require.Len(t, goals.BreakingPoints, 1, "resolved breaking points are excluded")
	assert.Equal(t, "Lange putter", goals.BreakingPoints[0].Area)
	assert.Equal(t, 40, goals.BreakingPoints[0].Progress)

	category, err := store.CategoryRequirements(ctx, "player-1")
	require.NoError(t, err)
	assert.Equal(t, "F", category.CurrentCategory)
	require.NotNil(t, category.NextCategory)
	assert.Equal(t, "E", *category.NextCategory)
	require.NotNil(t, category.Handicap)
	assert.Equal(t, 12.4, *category.Handicap)

	_, err = store.Goals(ctx, "no-such-player")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerStore_UpcomingTournaments_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()
	testDB.SeedPlayer(t, "player-1", "tenant-1", "Ola Nordmann", "F")

	_, err := testDB.Pool.Exec(ctx,
		`INSERT INTO tournaments (tenant_id, title, location, start_time, end_time, tournament_type, level, format, course_name)
		 VALUES ('tenant-1', 'Klubbmesterskap', 'Oslo GK', now() + interval '7 days', now() + interval '8 days', 'strokeplay', 'klubb', 'individual', 'Bogstad'),
		        ('tenant-1', 'Fjorårets turnering', 'Oslo GK', now() - interval '30 days', now() - interval '29 days', NULL, NULL, NULL, NULL),
		        ('tenant-2', 'Annen klubb', NULL, now() + interval '3 days', now() + interval '4 days', NULL, NULL, NULL, NULL)`)
	require.NoError(t, err)

	report, err := store.UpcomingTournaments(ctx, "player-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count, "past tournaments and other tenants are excluded")
	require.Len(t, report.Tournaments, 1)
	assert.Equal(t, "Klubbmesterskap", report.Tournaments[0].Name)
	assert.Equal(t, "Oslo GK", report.Tournaments[0].Location)
	assert.Equal(t, "Bogstad", report.Tournaments[0].Course)
}

func TestPlayerStore_CreateTrainingSuggestion_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()
	testDB.SeedPlayer(t, "player-1", "tenant-1", "Ola Nordmann", "F")

	receipt, err := store.CreateTrainingSuggestion(ctx, SuggestionParams{
		PlayerID:        "player-1",
		Title:           "Distansekontroll putting",
		SessionType:     "putting",
		DurationMinutes: 45,
		Exercises:       []string{"Stigeputting 5-15m", "Rundeputting 1m"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.SuggestionID)
	assert.Equal(t, `Treningsforslag "Distansekontroll putting" er opprettet`, receipt.Message)
	assert.Equal(t, 45, receipt.Duration)

	var (
		name, description, source string
		sequence                  []byte
	)
	err = testDB.Pool.QueryRow(ctx,
		`SELECT name, description, source, exercise_sequence FROM session_templates WHERE id = $1`,
		receipt.SuggestionID).Scan(&name, &description, &source, &sequence)
	require.NoError(t, err)
	assert.Equal(t, "[AI] Distansekontroll putting", name)
	assert.Equal(t, "AI-generert treningsforslag: Distansekontroll putting", description)
	assert.Equal(t, "ai", source)
	assert.JSONEq(t,
		`[{"order":1,"exercise":"Stigeputting 5-15m"},{"order":2,"exercise":"Rundeputting 1m"}]`,
		string(sequence))

	_, err = store.CreateTrainingSuggestion(ctx, SuggestionParams{PlayerID: "no-such-player", Title: "x"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerStore_PlayerContext_Integration(t *testing.T) {
	store, testDB := newIntegrationStore(t)
	ctx := context.Background()

	_, err := testDB.Pool.Exec(ctx,
		`INSERT INTO players (id, tenant_id, name, category, handicap, goals)
		 VALUES ('player-1', 'tenant-1', 'Kari Nordmann', 'F', 12.4, '["Nå kategori E"]')`)
	require.NoError(t, err)
	_, err = testDB.Pool.Exec(ctx,
		`INSERT INTO training_sessions (player_id, session_type, estimated_duration, status, assigned_date)
		 VALUES ('player-1', 'putting', 60, 'completed', now() - interval '2 days')`)
	require.NoError(t, err)

	pc, err := store.PlayerContext(ctx, "player-1")
	require.NoError(t, err)
	require.NotNil(t, pc)
	assert.Equal(t, "player-1", pc.ID)
	assert.Equal(t, "Kari Nordmann", pc.Name)
	assert.Equal(t, "F", pc.Category)
	require.NotNil(t, pc.Handicap)
	assert.Equal(t, 12.4, *pc.Handicap)
	assert.Equal(t, []string{"Nå kategori E"}, pc.Goals)
	require.Len(t, pc.RecentSessions, 1)
	assert.Equal(t, "putting", pc.RecentSessions[0].Type)

	missing, err := store.PlayerContext(ctx, "no-such-player")
	require.NoError(t, err)
	assert.Nil(t, missing, "a missing player is not an error")
}

func strPtr(s string) *string { return &s }
