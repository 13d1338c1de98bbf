package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akgolf/aicoach/internal/claude"
)

// PlanRequest carries the caller's plan preferences. Zero values mean the
// model decides.
type PlanRequest struct {
	WeeklyHoursTarget int
	FocusAreas        []string
	GoalDescription   string
}

// FocusSuggestion is one suggested focus area in a plan.
type FocusSuggestion struct {
	Area                  string  `json:"area"`
	Priority              string  `json:"priority"`
	Reason                string  `json:"reason"`
	SuggestedHoursPerWeek float64 `json:"suggestedHoursPerWeek"`
}

// SessionTypePlan describes how often one session type should recur.
type SessionTypePlan struct {
	Type      string `json:"type"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// WeeklyStructure is the recommended weekly layout.
type WeeklyStructure struct {
	RecommendedDays int               `json:"recommendedDays"`
	SessionTypes    []SessionTypePlan `json:"sessionTypes"`
}

// Periodization splits the season into base/build/peak phases (weeks).
type Periodization struct {
	BaseWeeks  int    `json:"baseWeeks"`
	BuildWeeks int    `json:"buildWeeks"`
	PeakWeeks  int    `json:"peakWeeks"`
	Rationale  string `json:"rationale"`
}

// PlanSuggestions is the outcome of PlanSuggestions. Every structured field
// has a documented default so a malformed model answer still yields a
// usable result.
type PlanSuggestions struct {
	Summary         string            `json:"summary"`
	SuggestedFocus  []FocusSuggestion `json:"suggestedFocus"`
	WeeklyStructure WeeklyStructure   `json:"weeklyStructure"`
	Periodization   Periodization     `json:"periodization"`
	ToolsUsed       []string          `json:"toolsUsed,omitempty"`
	Tokens          claude.Usage      `json:"tokens"`
}

// Structured-field defaults, applied independently per field when the
// model's answer is missing or unparseable.
const (
	defaultRecommendedDays = 4
	defaultBaseWeeks       = 16
	defaultBuildWeeks      = 12
	defaultPeakWeeks       = 24
)

func defaultPlan() PlanSuggestions {
	return PlanSuggestions{
		SuggestedFocus:  []FocusSuggestion{},
		WeeklyStructure: WeeklyStructure{RecommendedDays: defaultRecommendedDays, SessionTypes: []SessionTypePlan{}},
		Periodization:   Periodization{BaseWeeks: defaultBaseWeeks, BuildWeeks: defaultBuildWeeks, PeakWeeks: defaultPeakWeeks},
	}
}

const planPromptFormat = `Lag et forslag til treningsplan for spilleren. Bruk verktøyene til å hente testresultater, treningshistorikk, mål og kategorikrav først.

%sAvslutt svaret med et JSON-objekt i nøyaktig dette formatet:
{
  "summary": "kort oppsummering av planen",
  "suggestedFocus": [{"area": "Putting", "priority": "high", "reason": "...", "suggestedHoursPerWeek": 3}],
  "weeklyStructure": {"recommendedDays": 4, "sessionTypes": [{"type": "putting", "frequency": "2x per uke", "duration": "45 min"}]},
  "periodization": {"baseWeeks": 16, "buildWeeks": 12, "peakWeeks": 24, "rationale": "..."}
}`

// PlanSuggestions produces AI-assisted training plan suggestions. The loop
// runs with tools enabled; afterwards the first balanced JSON object in the
// final text is parsed, and each missing or malformed field independently
// falls back to its default.
func (c *Coach) PlanSuggestions(ctx context.Context, playerID string, req PlanRequest) PlanSuggestions {
	if !c.provider.Available() {
		out := defaultPlan()
		out.Summary = UnavailableMessage
		return out
	}

	pc := c.playerContext(ctx, playerID)
	system := c.buildSystemPrompt(pc, playerID, true)
	transcript := []claude.Message{{Role: claude.RoleUser, Content: buildPlanPrompt(req)}}

	res, err := c.runLoop(ctx, playerID, system, transcript, true)
	if err != nil {
		c.logger.Error("plan suggestions failed", "player_id", playerID, "error", err)
		out := defaultPlan()
		out.Summary = ErrorMessage
		return out
	}

	out := parsePlan(res.text)
	out.ToolsUsed = res.toolsUsed
	out.Tokens = res.usage
	return out
}

// buildPlanPrompt renders the seed prompt with the caller's preferences.
func buildPlanPrompt(req PlanRequest) string {
	var prefs strings.Builder
	if req.WeeklyHoursTarget > 0 {
		fmt.Fprintf(&prefs, "Spilleren ønsker å trene omtrent %d timer per uke.\n", req.WeeklyHoursTarget)
	}
	if len(req.FocusAreas) > 0 {
		fmt.Fprintf(&prefs, "Ønskede fokusområder: %s.\n", strings.Join(req.FocusAreas, ", "))
	}
	if req.GoalDescription != "" {
		fmt.Fprintf(&prefs, "Spillerens målbeskrivelse: %s\n", req.GoalDescription)
	}
	if prefs.Len() > 0 {
		prefs.WriteString("\n")
	}
	return fmt.Sprintf(planPromptFormat, prefs.String())
}

// parsedPlan uses pointers so absent fields are distinguishable from
// zero values when applying defaults.
type parsedPlan struct {
	Summary        *string            `json:"summary"`
	SuggestedFocus []FocusSuggestion  `json:"suggestedFocus"`
	Weekly         *parsedWeekly      `json:"weeklyStructure"`
	Periodization  *parsedPeriodizing `json:"periodization"`
}

type parsedWeekly struct {
	RecommendedDays *int              `json:"recommendedDays"`
	SessionTypes    []SessionTypePlan `json:"sessionTypes"`
}

type parsedPeriodizing struct {
	BaseWeeks  *int    `json:"baseWeeks"`
	BuildWeeks *int    `json:"buildWeeks"`
	PeakWeeks  *int    `json:"peakWeeks"`
	Rationale  *string `json:"rationale"`
}

// parsePlan extracts and parses the first balanced JSON object from the
// model text. Parsing failure is not an error: the raw text becomes the
// summary and everything else takes defaults.
func parsePlan(text string) PlanSuggestions {
	out := defaultPlan()
	out.Summary = text

	candidate := extractJSONObject(text)
	if candidate == "" {
		return out
	}
	var parsed parsedPlan
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return out
	}

	if parsed.Summary != nil && *parsed.Summary != "" {
		out.Summary = *parsed.Summary
	}
	if parsed.SuggestedFocus != nil {
		out.SuggestedFocus = parsed.SuggestedFocus
	}
	if parsed.Weekly != nil {
		if parsed.Weekly.RecommendedDays != nil {
			out.WeeklyStructure.RecommendedDays = *parsed.Weekly.RecommendedDays
		}
		if parsed.Weekly.SessionTypes != nil {
			out.WeeklyStructure.SessionTypes = parsed.Weekly.SessionTypes
		}
	}
	if parsed.Periodization != nil {
		if parsed.Periodization.BaseWeeks != nil {
			out.Periodization.BaseWeeks = *parsed.Periodization.BaseWeeks
		}
		if parsed.Periodization.BuildWeeks != nil {
			out.Periodization.BuildWeeks = *parsed.Periodization.BuildWeeks
		}
		if parsed.Periodization.PeakWeeks != nil {
			out.Periodization.PeakWeeks = *parsed.Periodization.PeakWeeks
		}
		if parsed.Periodization.Rationale != nil {
			out.Periodization.Rationale = *parsed.Periodization.Rationale
		}
	}
	return out
}

// extractJSONObject returns the first balanced {...} substring, tracking
// string literals and escapes so braces inside strings do not count.
// Returns "" when no balanced object exists.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
