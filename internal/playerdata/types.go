// Package playerdata reads player performance data and writes AI-generated
// training suggestions. It backs both the coaching tools and the
// per-operation player context snapshot.
package playerdata

import "encoding/json"

// Category ladder, lowest to highest. Promotion moves one step left to right.
var Categories = []string{"K", "J", "I", "H", "G", "F", "E", "D", "C", "B", "A"}

// NextCategory returns the category one step above current, or nil when the
// player already sits at the top (or the category is unknown).
func NextCategory(current string) *string {
	for i, c := range Categories {
		if c == current && i < len(Categories)-1 {
			next := Categories[i+1]
			return &next
		}
	}
	return nil
}

// TestResult is one formatted test outcome.
type TestResult struct {
	TestName            string   `json:"testName"`
	Category            string   `json:"category"`
	Value               *float64 `json:"value"`
	Unit                string   `json:"unit"`
	Date                string   `json:"date"`
	Passed              *bool    `json:"passed"`
	CategoryRequirement *float64 `json:"categoryRequirement"`
}

// TestResultsReport is the payload for get_player_test_results.
type TestResultsReport struct {
	Count   int          `json:"count"`
	Results []TestResult `json:"results"`
}

// SessionSummary is one recent training session.
type SessionSummary struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Status   string `json:"status"`
}

// TrainingReport is the payload for get_player_training_history.
type TrainingReport struct {
	Period         string           `json:"period"`
	TotalSessions  int              `json:"totalSessions"`
	TotalMinutes   int              `json:"totalMinutes"`
	TotalHours     float64          `json:"totalHours"`
	CompletionRate int              `json:"completionRate"`
	ByType         map[string]int   `json:"byType"`
	RecentSessions []SessionSummary `json:"recentSessions"`
}

// BreakingPoint is an active skill weakness being tracked for a player.
type BreakingPoint struct {
	Area        string `json:"area"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
}

// GoalsReport is the payload for get_player_goals.
type GoalsReport struct {
	Goals          json.RawMessage `json:"goals"`
	BreakingPoints []BreakingPoint `json:"breakingPoints"`
}

// TestPerformance is one recent result used for category assessment.
type TestPerformance struct {
	Test        string   `json:"test"`
	Category    string   `json:"category"`
	Passed      *bool    `json:"passed"`
	Value       *float64 `json:"value"`
	Requirement *float64 `json:"requirement"`
	Unit        string   `json:"unit"`
}

// CategoryReport is the payload for get_player_category_requirements.
type CategoryReport struct {
	CurrentCategory       string            `json:"currentCategory"`
	Handicap              *float64          `json:"handicap"`
	AverageScore          *float64          `json:"averageScore"`
	NextCategory          *string           `json:"nextCategory"`
	RecentTestPerformance []TestPerformance `json:"recentTestPerformance"`
}

// Tournament is one upcoming tournament entry.
type Tournament struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Location  string `json:"location"`
	Type      string `json:"type,omitempty"`
	Level     string `json:"level,omitempty"`
	Format    string `json:"format,omitempty"`
	Course    string `json:"course,omitempty"`
}

// TournamentsReport is the payload for get_upcoming_tournaments.
type TournamentsReport struct {
	Count       int          `json:"count"`
	Tournaments []Tournament `json:"tournaments"`
}

// SuggestionParams are the inputs for create_training_suggestion.
type SuggestionParams struct {
	PlayerID        string
	Title           string
	Description     string
	SessionType     string
	DurationMinutes int
	Exercises       []string
}

// SuggestionReceipt confirms a created training suggestion.
type SuggestionReceipt struct {
	Message      string `json:"message"`
	SuggestionID string `json:"suggestionId"`
	SessionType  string `json:"sessionType"`
	Duration     int    `json:"duration"`
}

// ContextSession is one recent session in the player context snapshot.
type ContextSession struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
}

// ContextBreakingPoint is one tracked weakness in the player context snapshot.
type ContextBreakingPoint struct {
	Area        string `json:"area"`
	Description string `json:"description"`
	Progress    int    `json:"progress"`
}

// PlayerContext is the read-only snapshot injected into system prompts.
// It is fetched fresh per operation and never persisted here.
type PlayerContext struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Category       string                 `json:"category,omitempty"`
	Handicap       *float64               `json:"handicap,omitempty"`
	AverageScore   *float64               `json:"averageScore,omitempty"`
	BreakingPoints []ContextBreakingPoint `json:"breakingPoints,omitempty"`
	RecentSessions []ContextSession       `json:"recentSessions,omitempty"`
	Goals          []string               `json:"goals,omitempty"`
}
