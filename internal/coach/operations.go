package coach

import (
	"context"

	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/tools"
)

// ChatOpts controls a chat-style operation.
type ChatOpts struct {
	UseTools bool
}

// ChatResult is the outcome of an open chat turn.
type ChatResult struct {
	Response  string       `json:"response"`
	Tokens    claude.Usage `json:"tokens"`
	ToolsUsed []string     `json:"toolsUsed,omitempty"`
}

// Chat answers one user message against the caller-supplied history.
func (c *Coach) Chat(ctx context.Context, playerID, message string, history []claude.Message, opts ChatOpts) ChatResult {
	if !c.provider.Available() {
		return ChatResult{Response: UnavailableMessage}
	}

	pc := c.playerContext(ctx, playerID)
	system := c.buildSystemPrompt(pc, playerID, opts.UseTools)

	transcript := make([]claude.Message, 0, len(history)+1)
	transcript = append(transcript, history...)
	transcript = append(transcript, claude.Message{Role: claude.RoleUser, Content: message})

	res, err := c.runLoop(ctx, playerID, system, transcript, opts.UseTools)
	if err != nil {
		c.logger.Error("chat failed", "player_id", playerID, "error", err)
		return ChatResult{Response: ErrorMessage}
	}

	return ChatResult{Response: res.text, Tokens: res.usage, ToolsUsed: res.toolsUsed}
}

// SuggestedExercise mirrors the structured input of a created training
// suggestion into the recommendations result.
type SuggestedExercise struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Duration int    `json:"duration"`
	Priority string `json:"priority"`
}

// RecommendationsResult is the outcome of TrainingRecommendations.
type RecommendationsResult struct {
	Recommendations    string              `json:"recommendations"`
	Tokens             claude.Usage        `json:"tokens"`
	ToolsUsed          []string            `json:"toolsUsed,omitempty"`
	SuggestedExercises []SuggestedExercise `json:"suggestedExercises,omitempty"`
}

const recommendationsPrompt = `Analyser spillerens nåværende nivå og gi 3-5 konkrete treningsanbefalinger.

Bruk verktøyene til å hente testresultater, treningshistorikk, mål og kategorikrav før du konkluderer. Prioriter områdene med størst gap mot neste kategori. Opprett treningsforslag (create_training_suggestion) for de viktigste anbefalingene, slik at spilleren finner dem i appen sin.`

// TrainingRecommendations gathers player data via tools and produces 3-5
// recommendations. Calls to the create-suggestion tool are additionally
// mirrored into SuggestedExercises.
func (c *Coach) TrainingRecommendations(ctx context.Context, playerID string, opts ChatOpts) RecommendationsResult {
	if !c.provider.Available() {
		return RecommendationsResult{Recommendations: UnavailableMessage}
	}

	pc := c.playerContext(ctx, playerID)
	system := c.buildSystemPrompt(pc, playerID, opts.UseTools)
	transcript := []claude.Message{{Role: claude.RoleUser, Content: recommendationsPrompt}}

	res, err := c.runLoop(ctx, playerID, system, transcript, opts.UseTools)
	if err != nil {
		c.logger.Error("recommendations failed", "player_id", playerID, "error", err)
		return RecommendationsResult{Recommendations: ErrorMessage}
	}

	return RecommendationsResult{
		Recommendations:    res.text,
		Tokens:             res.usage,
		ToolsUsed:          res.toolsUsed,
		SuggestedExercises: collectSuggestedExercises(res.toolCalls),
	}
}

// collectSuggestedExercises extracts the structured side channel from
// executed create_training_suggestion calls.
func collectSuggestedExercises(calls []claude.ToolCall) []SuggestedExercise {
	var out []SuggestedExercise
	for _, call := range calls {
		if call.Name != tools.ToolTrainingSuggestion {
			continue
		}
		ex := SuggestedExercise{
			Name:     stringField(call.Input, "title"),
			Category: stringField(call.Input, "session_type"),
			Duration: intField(call.Input, "duration_minutes"),
			Priority: stringField(call.Input, "priority"),
		}
		if ex.Priority == "" {
			ex.Priority = "medium"
		}
		out = append(out, ex)
	}
	return out
}

// AnalysisResult is the outcome of AnalyzeBreakingPoint.
type AnalysisResult struct {
	Analysis string       `json:"analysis"`
	Tokens   claude.Usage `json:"tokens"`
}

// AnalyzeBreakingPoint is the single-shot variant: one request, one
// response, tools disabled.
func (c *Coach) AnalyzeBreakingPoint(ctx context.Context, playerID, area, description string) AnalysisResult {
	if !c.provider.Available() {
		return AnalysisResult{Analysis: UnavailableMessage}
	}

	pc := c.playerContext(ctx, playerID)
	system := c.buildSystemPrompt(pc, playerID, false)

	prompt := "Analyser dette forbedringsområdet for spilleren og foreslå hvordan det bør trenes:\n\nOmråde: " + area
	if description != "" {
		prompt += "\nBeskrivelse: " + description
	}
	prompt += "\n\nGi en kort analyse av sannsynlige årsaker, og 2-3 konkrete øvelser med tydelig progresjon."

	resp, err := c.provider.Chat(ctx, []claude.Message{{Role: claude.RoleUser, Content: prompt}}, claude.ChatOptions{
		System:      system,
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Error("breaking point analysis failed", "player_id", playerID, "area", area, "error", err)
		return AnalysisResult{Analysis: ErrorMessage}
	}

	return AnalysisResult{Analysis: resp.Content, Tokens: resp.Usage}
}

func stringField(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func intField(input map[string]any, key string) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
