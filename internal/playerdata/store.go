package playerdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akgolf/aicoach/internal/log"
)

// ErrPlayerNotFound is returned when the subject player does not exist.
var ErrPlayerNotFound = errors.New("player not found")

const dateFormat = "2006-01-02"

const testResultCols = `t.name, t.category, t.unit, r.value, r.passed, r.category_requirement, r.test_date`

const selectTestResultsSQL = `SELECT ` + testResultCols + `
	FROM test_results r
	JOIN tests t ON t.id = r.test_id
	WHERE r.player_id = $1
	ORDER BY r.test_date DESC
	LIMIT $2`

const selectTestResultsByCategorySQL = `SELECT ` + testResultCols + `
	FROM test_results r
	JOIN tests t ON t.id = r.test_id
	WHERE r.player_id = $1 AND t.category = $3
	ORDER BY r.test_date DESC
	LIMIT $2`

const selectSessionsSinceSQL = `SELECT name, session_type, estimated_duration, status, assigned_date
	FROM training_sessions
	WHERE player_id = $1 AND assigned_date >= $2
	ORDER BY assigned_date DESC`

const selectPlayerGoalsSQL = `SELECT goals FROM players WHERE id = $1`

const selectBreakingPointsSQL = `SELECT specific_area, process_category, description, progress_percent
	FROM breaking_points
	WHERE player_id = $1 AND status IN ('active', 'not_started', 'in_progress')
	ORDER BY progress_percent ASC`

const selectPlayerProfileSQL = `SELECT category, handicap, average_score FROM players WHERE id = $1`

const selectPlayerTenantSQL = `SELECT tenant_id FROM players WHERE id = $1`

const selectUpcomingTournamentsSQL = `SELECT title, location, start_time, end_time,
		tournament_type, level, format, course_name
	FROM tournaments
	WHERE tenant_id = $1 AND start_time >= now()
	ORDER BY start_time ASC
	LIMIT $2`

const insertSuggestionSQL = `INSERT INTO session_templates
		(tenant_id, name, description, session_type, duration, exercise_sequence, source)
	VALUES ($1, $2, $3, $4, $5, $6, 'ai')
	RETURNING id`

const selectPlayerContextSQL = `SELECT name, category, handicap, average_score, goals
	FROM players WHERE id = $1`

const selectRecentCompletedSQL = `SELECT session_type, estimated_duration, assigned_date
	FROM training_sessions
	WHERE player_id = $1 AND status = 'completed'
	ORDER BY assigned_date DESC
	LIMIT $2`

// Store reads player performance data from PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a player data Store.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// TestResults returns the player's most recent test results, optionally
// filtered to one test category.
func (s *Store) TestResults(ctx context.Context, playerID string, limit int, category string) (TestResultsReport, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if category != "" {
		rows, err = s.pool.Query(ctx, selectTestResultsByCategorySQL, playerID, limit, category)
	} else {
		rows, err = s.pool.Query(ctx, selectTestResultsSQL, playerID, limit)
	}
	if err != nil {
		return TestResultsReport{}, fmt.Errorf("querying test results: %w", err)
	}
	defer rows.Close()

	results := make([]TestResult, 0, limit)
	for rows.Next() {
		var (
			r    TestResult
			unit *string
			date time.Time
		)
		if err := rows.Scan(&r.TestName, &r.Category, &unit, &r.Value, &r.Passed, &r.CategoryRequirement, &date); err != nil {
			return TestResultsReport{}, fmt.Errorf("scanning test result: %w", err)
		}
		if unit != nil {
			r.Unit = *unit
		}
		r.Date = date.Format(dateFormat)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return TestResultsReport{}, fmt.Errorf("iterating test results: %w", err)
	}

	return TestResultsReport{Count: len(results), Results: results}, nil
}

// TrainingHistory summarizes the player's sessions over the last N days:
// totals, completion rate, minutes per session type, and the five most
// recent sessions.
func (s *Store) TrainingHistory(ctx context.Context, playerID string, days int) (TrainingReport, error) {
	since := time.Now().AddDate(0, 0, -days)

	rows, err := s.pool.Query(ctx, selectSessionsSinceSQL, playerID, since)
	if err != nil {
		return TrainingReport{}, fmt.Errorf("querying training sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var (
			sess     SessionSummary
			name     *string
			duration *int
			date     time.Time
		)
		if err := rows.Scan(&name, &sess.Type, &duration, &sess.Status, &date); err != nil {
			return TrainingReport{}, fmt.Errorf("scanning training session: %w", err)
		}
		sess.Name = "Treningsøkt"
		if name != nil && *name != "" {
			sess.Name = *name
		}
		if duration != nil {
			sess.Duration = *duration
		}
		sess.Date = date.Format(dateFormat)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return TrainingReport{}, fmt.Errorf("iterating training sessions: %w", err)
	}

	report := TrainingReport{
		Period: fmt.Sprintf("Siste %d dager", days),
		ByType: map[string]int{},
	}

	var totalMinutes int
	for _, sess := range sessions {
		if sess.Status != "completed" {
			continue
		}
		report.TotalSessions++
		totalMinutes += sess.Duration
		typ := sess.Type
		if typ == "" {
			typ = "general"
		}
		report.ByType[typ] += sess.Duration
	}
	report.TotalMinutes = totalMinutes
	report.TotalHours = math.Round(float64(totalMinutes)/60*10) / 10
	if len(sessions) > 0 {
		report.CompletionRate = int(math.Round(float64(report.TotalSessions) / float64(len(sessions)) * 100))
	}
	if len(sessions) > 5 {
		sessions = sessions[:5]
	}
	report.RecentSessions = sessions

	return report, nil
}

// Goals returns the player's goals and tracked breaking points.
func (s *Store) Goals(ctx context.Context, playerID string) (GoalsReport, error) {
	var goals []byte
	err := s.pool.QueryRow(ctx, selectPlayerGoalsSQL, playerID).Scan(&goals)
	if errors.Is(err, pgx.ErrNoRows) {
		return GoalsReport{}, ErrPlayerNotFound
	}
	if err != nil {
		return GoalsReport{}, fmt.Errorf("querying player goals: %w", err)
	}

	report := GoalsReport{Goals: json.RawMessage(`[]`), BreakingPoints: []BreakingPoint{}}
	if len(goals) > 0 {
		report.Goals = json.RawMessage(goals)
	}

	rows, err := s.pool.Query(ctx, selectBreakingPointsSQL, playerID)
	if err != nil {
		return GoalsReport{}, fmt.Errorf("querying breaking points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bp          BreakingPoint
			description *string
		)
		if err := rows.Scan(&bp.Area, &bp.Category, &description, &bp.Progress); err != nil {
			return GoalsReport{}, fmt.Errorf("scanning breaking point: %w", err)
		}
		if description != nil {
			bp.Description = *description
		}
		report.BreakingPoints = append(report.BreakingPoints, bp)
	}
	if err := rows.Err(); err != nil {
		return GoalsReport{}, fmt.Errorf("iterating breaking points: %w", err)
	}

	return report, nil
}

// CategoryRequirements returns the player's current standing and the next
// rung on the category ladder, with their latest test performance.
func (s *Store) CategoryRequirements(ctx context.Context, playerID string) (CategoryReport, error) {
	var (
		category *string
		report   CategoryReport
	)
	err := s.pool.QueryRow(ctx, selectPlayerProfileSQL, playerID).
		Scan(&category, &report.Handicap, &report.AverageScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return CategoryReport{}, ErrPlayerNotFound
	}
	if err != nil {
		return CategoryReport{}, fmt.Errorf("querying player profile: %w", err)
	}

	current := "K"
	report.CurrentCategory = "Ukjent"
	if category != nil && *category != "" {
		current = *category
		report.CurrentCategory = *category
	}
	report.NextCategory = NextCategory(current)

	rows, err := s.pool.Query(ctx, selectTestResultsSQL, playerID, 5)
	if err != nil {
		return CategoryReport{}, fmt.Errorf("querying recent results: %w", err)
	}
	defer rows.Close()

	report.RecentTestPerformance = []TestPerformance{}
	for rows.Next() {
		var (
			perf TestPerformance
			unit *string
			date time.Time
		)
		if err := rows.Scan(&perf.Test, &perf.Category, &unit, &perf.Value, &perf.Passed, &perf.Requirement, &date); err != nil {
			return CategoryReport{}, fmt.Errorf("scanning recent result: %w", err)
		}
		if unit != nil {
			perf.Unit = *unit
		}
		report.RecentTestPerformance = append(report.RecentTestPerformance, perf)
	}
	if err := rows.Err(); err != nil {
		return CategoryReport{}, fmt.Errorf("iterating recent results: %w", err)
	}

	return report, nil
}

// UpcomingTournaments returns tournaments in the player's organization that
// have not started yet, soonest first.
func (s *Store) UpcomingTournaments(ctx context.Context, playerID string, limit int) (TournamentsReport, error) {
	var tenantID string
	err := s.pool.QueryRow(ctx, selectPlayerTenantSQL, playerID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return TournamentsReport{}, ErrPlayerNotFound
	}
	if err != nil {
		return TournamentsReport{}, fmt.Errorf("querying player tenant: %w", err)
	}

	rows, err := s.pool.Query(ctx, selectUpcomingTournamentsSQL, tenantID, limit)
	if err != nil {
		return TournamentsReport{}, fmt.Errorf("querying tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := []Tournament{}
	for rows.Next() {
		var (
			t                          Tournament
			location                   *string
			start, end                 time.Time
			typ, level, format, course *string
		)
		if err := rows.Scan(&t.Name, &location, &start, &end, &typ, &level, &format, &course); err != nil {
			return TournamentsReport{}, fmt.Errorf("scanning tournament: %w", err)
		}
		if location != nil {
			t.Location = *location
		}
		t.StartDate = start.Format(dateFormat)
		t.EndDate = end.Format(dateFormat)
		t.Type = deref(typ)
		t.Level = deref(level)
		t.Format = deref(format)
		t.Course = deref(course)
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return TournamentsReport{}, fmt.Errorf("iterating tournaments: %w", err)
	}

	return TournamentsReport{Count: len(tournaments), Tournaments: tournaments}, nil
}

// CreateTrainingSuggestion stores an AI-authored session template the player
// can pick up in their app. The name is prefixed so coaches can tell
// AI suggestions from their own templates.
func (s *Store) CreateTrainingSuggestion(ctx context.Context, params SuggestionParams) (SuggestionReceipt, error) {
	var tenantID string
	err := s.pool.QueryRow(ctx, selectPlayerTenantSQL, params.PlayerID).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return SuggestionReceipt{}, ErrPlayerNotFound
	}
	if err != nil {
		return SuggestionReceipt{}, fmt.Errorf("querying player tenant: %w", err)
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("AI-generert treningsforslag: %s", params.Title)
	}

	type exerciseStep struct {
		Order    int    `json:"order"`
		Exercise string `json:"exercise"`
	}
	sequence := make([]exerciseStep, 0, len(params.Exercises))
	for i, ex := range params.Exercises {
		sequence = append(sequence, exerciseStep{Order: i + 1, Exercise: ex})
	}
	rawSequence, err := json.Marshal(sequence)
	if err != nil {
		return SuggestionReceipt{}, fmt.Errorf("encoding exercise sequence: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx, insertSuggestionSQL,
		tenantID,
		fmt.Sprintf("[AI] %s", params.Title),
		description,
		params.SessionType,
		params.DurationMinutes,
		rawSequence,
	).Scan(&id)
	if err != nil {
		return SuggestionReceipt{}, fmt.Errorf("inserting training suggestion: %w", err)
	}

	s.logger.Info("training suggestion created",
		"player_id", params.PlayerID, "suggestion_id", id, "session_type", params.SessionType)

	return SuggestionReceipt{
		Message:      fmt.Sprintf("Treningsforslag %q er opprettet", params.Title),
		SuggestionID: id,
		SessionType:  params.SessionType,
		Duration:     params.DurationMinutes,
	}, nil
}

// PlayerContext fetches the snapshot injected into system prompts. A missing
// player yields (nil, nil), never an error.
func (s *Store) PlayerContext(ctx context.Context, playerID string) (*PlayerContext, error) {
	var (
		pc       PlayerContext
		category *string
		goals    []byte
	)
	err := s.pool.QueryRow(ctx, selectPlayerContextSQL, playerID).
		Scan(&pc.Name, &category, &pc.Handicap, &pc.AverageScore, &goals)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}
	pc.ID = playerID
	pc.Category = deref(category)

	// Goals is free-form JSON; only a plain string list makes it into the
	// prompt, anything else is silently skipped.
	if len(goals) > 0 {
		var list []string
		if err := json.Unmarshal(goals, &list); err == nil {
			pc.Goals = list
		}
	}

	bpRows, err := s.pool.Query(ctx, selectBreakingPointsSQL, playerID)
	if err != nil {
		return nil, fmt.Errorf("querying breaking points: %w", err)
	}
	defer bpRows.Close()
	for bpRows.Next() {
		var (
			bp          ContextBreakingPoint
			processCat  string
			description *string
		)
		if err := bpRows.Scan(&bp.Area, &processCat, &description, &bp.Progress); err != nil {
			return nil, fmt.Errorf("scanning breaking point: %w", err)
		}
		if description != nil {
			bp.Description = *description
		}
		pc.BreakingPoints = append(pc.BreakingPoints, bp)
	}
	if err := bpRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating breaking points: %w", err)
	}

	sessRows, err := s.pool.Query(ctx, selectRecentCompletedSQL, playerID, 5)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	defer sessRows.Close()
	for sessRows.Next() {
		var (
			sess     ContextSession
			duration *int
			date     time.Time
		)
		if err := sessRows.Scan(&sess.Type, &duration, &date); err != nil {
			return nil, fmt.Errorf("scanning recent session: %w", err)
		}
		if duration != nil {
			sess.Duration = *duration
		}
		sess.Date = date.Format(dateFormat)
		pc.RecentSessions = append(pc.RecentSessions, sess)
	}
	if err := sessRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent sessions: %w", err)
	}

	return &pc, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
