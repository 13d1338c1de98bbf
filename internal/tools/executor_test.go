package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/playerdata"
)

// fakeData records the arguments of the last call and returns canned values.
type fakeData struct {
	lastPlayerID string
	lastLimit    int
	lastDays     int
	lastCategory string
	lastParams   playerdata.SuggestionParams

	err   error
	panic bool
}

func (f *fakeData) TestResults(_ context.Context, playerID string, limit int, category string) (playerdata.TestResultsReport, error) {
	if f.panic {
		panic("boom")
	}
	f.lastPlayerID, f.lastLimit, f.lastCategory = playerID, limit, category
	return playerdata.TestResultsReport{Count: 2}, f.err
}

func (f *fakeData) TrainingHistory(_ context.Context, playerID string, days int) (playerdata.TrainingReport, error) {
	f.lastPlayerID, f.lastDays = playerID, days
	return playerdata.TrainingReport{TotalSessions: 3}, f.err
}

func (f *fakeData) Goals(_ context.Context, playerID string) (playerdata.GoalsReport, error) {
	f.lastPlayerID = playerID
	return playerdata.GoalsReport{}, f.err
}

func (f *fakeData) CategoryRequirements(_ context.Context, playerID string) (playerdata.CategoryReport, error) {
	f.lastPlayerID = playerID
	return playerdata.CategoryReport{CurrentCategory: "G"}, f.err
}

func (f *fakeData) UpcomingTournaments(_ context.Context, playerID string, limit int) (playerdata.TournamentsReport, error) {
	f.lastPlayerID, f.lastLimit = playerID, limit
	return playerdata.TournamentsReport{Count: 1}, f.err
}

func (f *fakeData) CreateTrainingSuggestion(_ context.Context, params playerdata.SuggestionParams) (playerdata.SuggestionReceipt, error) {
	f.lastParams = params
	return playerdata.SuggestionReceipt{SuggestionID: "s1"}, f.err
}

func newTestExecutor(data *fakeData) *Executor {
	return NewExecutor(data, log.NewNop())
}

func TestExecute_Dispatch(t *testing.T) {
	data := &fakeData{}
	e := newTestExecutor(data)

	res := e.Execute(context.Background(), ToolTestResults, map[string]any{
		"player_id": "p1",
		"limit":     float64(3), // JSON numbers decode as float64
		"category":  "putting",
	})

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if data.lastPlayerID != "p1" || data.lastLimit != 3 || data.lastCategory != "putting" {
		t.Errorf("unexpected call args: %+v", data)
	}
	report, ok := res.Data.(playerdata.TestResultsReport)
	if !ok || report.Count != 2 {
		t.Errorf("unexpected data: %#v", res.Data)
	}
}

func TestExecute_Defaults(t *testing.T) {
	data := &fakeData{}
	e := newTestExecutor(data)

	e.Execute(context.Background(), ToolTestResults, map[string]any{"player_id": "p1"})
	if data.lastLimit != defaultTestResultLimit {
		t.Errorf("test result limit = %d, want %d", data.lastLimit, defaultTestResultLimit)
	}

	e.Execute(context.Background(), ToolTrainingHistory, map[string]any{"player_id": "p1"})
	if data.lastDays != defaultHistoryDays {
		t.Errorf("history days = %d, want %d", data.lastDays, defaultHistoryDays)
	}

	e.Execute(context.Background(), ToolUpcomingTournaments, map[string]any{"player_id": "p1"})
	if data.lastLimit != defaultTournamentLimit {
		t.Errorf("tournament limit = %d, want %d", data.lastLimit, defaultTournamentLimit)
	}
}

func TestExecute_TrainingSuggestion(t *testing.T) {
	data := &fakeData{}
	e := newTestExecutor(data)

	res := e.Execute(context.Background(), ToolTrainingSuggestion, map[string]any{
		"player_id":        "p1",
		"title":            "Puttetrening",
		"session_type":     "putting",
		"duration_minutes": float64(45),
		"exercises":        []any{"Gate drill", "Lag putting"},
	})

	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	want := playerdata.SuggestionParams{
		PlayerID:        "p1",
		Title:           "Puttetrening",
		SessionType:     "putting",
		DurationMinutes: 45,
		Exercises:       []string{"Gate drill", "Lag putting"},
	}
	got := data.lastParams
	if got.PlayerID != want.PlayerID || got.Title != want.Title ||
		got.SessionType != want.SessionType || got.DurationMinutes != want.DurationMinutes ||
		len(got.Exercises) != 2 {
		t.Errorf("params = %+v, want %+v", got, want)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	e := newTestExecutor(&fakeData{})

	res := e.Execute(context.Background(), "delete_everything", nil)
	if res.Success {
		t.Fatal("unknown tool must fail")
	}
	if res.Error != "Unknown tool: delete_everything" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_PlayerNotFound(t *testing.T) {
	e := newTestExecutor(&fakeData{err: playerdata.ErrPlayerNotFound})

	res := e.Execute(context.Background(), ToolGoals, map[string]any{"player_id": "ghost"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "Spiller ikke funnet" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_HandlerError(t *testing.T) {
	e := newTestExecutor(&fakeData{err: errors.New("connection reset")})

	res := e.Execute(context.Background(), ToolGoals, map[string]any{"player_id": "p1"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "connection reset") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecute_RecoversFromPanic(t *testing.T) {
	e := newTestExecutor(&fakeData{panic: true})

	res := e.Execute(context.Background(), ToolTestResults, map[string]any{"player_id": "p1"})
	if res.Success {
		t.Fatal("panic must surface as a failed result")
	}
	if !strings.Contains(res.Error, "panicked") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestResult_JSON(t *testing.T) {
	ok := Result{Success: true, Data: map[string]any{"count": 1}}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(ok.JSON()), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["success"] != true {
		t.Errorf("success = %v", decoded["success"])
	}
	if _, present := decoded["error"]; present {
		t.Error("success envelope must omit error")
	}

	fail := Result{Success: false, Error: "Spiller ikke funnet"}
	decoded = nil
	if err := json.Unmarshal([]byte(fail.JSON()), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["error"] != "Spiller ikke funnet" {
		t.Errorf("error = %v", decoded["error"])
	}
	if _, present := decoded["data"]; present {
		t.Error("failure envelope must omit data")
	}
}
