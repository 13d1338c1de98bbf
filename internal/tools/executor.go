package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/playerdata"
)

// Defaults applied when the model omits optional inputs.
const (
	defaultTestResultLimit = 10
	defaultHistoryDays     = 30
	defaultTournamentLimit = 5
)

// PlayerData is the data access surface the executor dispatches to.
// *playerdata.Store satisfies it.
type PlayerData interface {
	TestResults(ctx context.Context, playerID string, limit int, category string) (playerdata.TestResultsReport, error)
	TrainingHistory(ctx context.Context, playerID string, days int) (playerdata.TrainingReport, error)
	Goals(ctx context.Context, playerID string) (playerdata.GoalsReport, error)
	CategoryRequirements(ctx context.Context, playerID string) (playerdata.CategoryReport, error)
	UpcomingTournaments(ctx context.Context, playerID string, limit int) (playerdata.TournamentsReport, error)
	CreateTrainingSuggestion(ctx context.Context, params playerdata.SuggestionParams) (playerdata.SuggestionReceipt, error)
}

// Result is the envelope every tool execution produces. Exactly one of
// Data and Error is meaningful depending on Success.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON renders the result for the tool_result content block. A result that
// cannot be marshaled degrades to a failure envelope rather than erroring.
func (r Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"kunne ikke serialisere verktøyresultat"}`
	}
	return string(raw)
}

// Executor dispatches tool calls by name. Execute never panics and never
// returns an error: every failure becomes a Result envelope so a bad tool
// call degrades the conversation instead of aborting it.
type Executor struct {
	data   PlayerData
	logger log.Logger
}

// NewExecutor creates an executor backed by the given data layer.
func NewExecutor(data PlayerData, logger log.Logger) *Executor {
	return &Executor{data: data, logger: logger}
}

// Execute runs the named tool with the given input.
func (e *Executor) Execute(ctx context.Context, name string, input map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool execution panic", "tool", name, "panic", r)
			result = failure(fmt.Sprintf("tool %s panicked", name))
		}
	}()

	var (
		data any
		err  error
	)

	switch name {
	case ToolTestResults:
		var in TestResultsInput
		if err = decodeInput(input, &in); err == nil {
			if in.Limit <= 0 {
				in.Limit = defaultTestResultLimit
			}
			data, err = call(func() (playerdata.TestResultsReport, error) {
				return e.data.TestResults(ctx, in.PlayerID, in.Limit, in.Category)
			})
		}

	case ToolTrainingHistory:
		var in TrainingHistoryInput
		if err = decodeInput(input, &in); err == nil {
			if in.Days <= 0 {
				in.Days = defaultHistoryDays
			}
			data, err = call(func() (playerdata.TrainingReport, error) {
				return e.data.TrainingHistory(ctx, in.PlayerID, in.Days)
			})
		}

	case ToolGoals:
		var in GoalsInput
		if err = decodeInput(input, &in); err == nil {
			data, err = call(func() (playerdata.GoalsReport, error) {
				return e.data.Goals(ctx, in.PlayerID)
			})
		}

	case ToolCategoryRequirements:
		var in CategoryRequirementsInput
		if err = decodeInput(input, &in); err == nil {
			data, err = call(func() (playerdata.CategoryReport, error) {
				return e.data.CategoryRequirements(ctx, in.PlayerID)
			})
		}

	case ToolUpcomingTournaments:
		var in UpcomingTournamentsInput
		if err = decodeInput(input, &in); err == nil {
			if in.Limit <= 0 {
				in.Limit = defaultTournamentLimit
			}
			data, err = call(func() (playerdata.TournamentsReport, error) {
				return e.data.UpcomingTournaments(ctx, in.PlayerID, in.Limit)
			})
		}

	case ToolTrainingSuggestion:
		var in TrainingSuggestionInput
		if err = decodeInput(input, &in); err == nil {
			data, err = call(func() (playerdata.SuggestionReceipt, error) {
				return e.data.CreateTrainingSuggestion(ctx, playerdata.SuggestionParams{
					PlayerID:        in.PlayerID,
					Title:           in.Title,
					Description:     in.Description,
					SessionType:     in.SessionType,
					DurationMinutes: in.DurationMinutes,
					Exercises:       in.Exercises,
				})
			})
		}

	default:
		return failure(fmt.Sprintf("Unknown tool: %s", name))
	}

	if err != nil {
		e.logger.Warn("tool execution failed", "tool", name, "error", err)
		if errors.Is(err, playerdata.ErrPlayerNotFound) {
			return failure("Spiller ikke funnet")
		}
		return failure(err.Error())
	}

	return Result{Success: true, Data: data}
}

// call adapts a typed data handler to the untyped result envelope.
func call[T any](fn func() (T, error)) (any, error) {
	out, err := fn()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeInput converts the model-supplied input map into a typed input
// struct via JSON, tolerating unknown fields.
func decodeInput(input map[string]any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding tool input: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding tool input: %w", err)
	}
	return nil
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}
