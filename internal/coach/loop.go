package coach

import (
	"context"
	"maps"

	"github.com/akgolf/aicoach/internal/claude"
)

// State tracks the loop's position in its lifecycle. DONE, BUDGET_EXCEEDED
// and FAILED are terminal.
type State string

const (
	StateInit           State = "INIT"
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateHasToolCalls   State = "HAS_TOOL_CALLS"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
	StateBudgetExceeded State = "BUDGET_EXCEEDED"
	StateFailed         State = "FAILED"
)

// loopResult is the outcome of one bounded loop run.
type loopResult struct {
	state     State
	text      string
	usage     claude.Usage
	toolsUsed []string          // deduplicated, in first-use order
	toolCalls []claude.ToolCall // every executed call, with overridden input
}

// runLoop drives the model until it answers without tool calls or the round
// cap is hit. Tool calls within a round execute sequentially, in the order
// the model returned them, so each tool_result stays paired with its
// tool_use id and transcript reconstruction is deterministic.
//
// A provider error puts the loop in FAILED and returns the error; the
// operation boundary converts it to the fixed apology.
func (c *Coach) runLoop(ctx context.Context, playerID, system string, transcript []claude.Message, useTools bool) (loopResult, error) {
	res := loopResult{state: StateInit}

	opts := claude.ChatOptions{
		System:      system,
		Temperature: c.temperature,
	}
	if useTools {
		opts.Tools = c.toolDefs
	}

	for round := 0; round < c.maxRounds; round++ {
		res.state = StateAwaitingModel
		resp, err := c.provider.Chat(ctx, transcript, opts)
		if err != nil {
			res.state = StateFailed
			return res, err
		}
		res.usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			res.state = StateDone
			res.text = resp.Content
			return res, nil
		}

		res.state = StateHasToolCalls
		transcript = append(transcript, claude.Message{
			Role:      claude.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		res.state = StateExecutingTools
		results := make([]claude.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			// The trusted identity always wins over whatever the model put
			// in the input. Override, never merge.
			input := maps.Clone(call.Input)
			if input == nil {
				input = map[string]any{}
			}
			input["player_id"] = playerID

			outcome := c.exec.Execute(ctx, call.Name, input)
			results = append(results, claude.ToolResult{
				ToolCallID: call.ID,
				Content:    outcome.JSON(),
				IsError:    !outcome.Success,
			})

			res.toolsUsed = appendUnique(res.toolsUsed, call.Name)
			res.toolCalls = append(res.toolCalls, claude.ToolCall{ID: call.ID, Name: call.Name, Input: input})

			c.logger.Debug("tool executed",
				"tool", call.Name, "player_id", playerID, "success", outcome.Success, "round", round+1)
		}

		transcript = append(transcript, claude.Message{
			Role:        claude.RoleUser,
			ToolResults: results,
		})
	}

	// Cap reached without a tool-free answer. Not an error: the caller gets
	// the fixed message plus whatever usage accumulated.
	res.state = StateBudgetExceeded
	res.text = BudgetMessage
	c.logger.Warn("tool loop budget exceeded", "player_id", playerID, "max_rounds", c.maxRounds)
	return res, nil
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}
