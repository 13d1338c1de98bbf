// Package tools defines the coaching tools exposed to the model and
// dispatches tool calls to the player data layer.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/akgolf/aicoach/internal/claude"
)

// Tool names as declared to the model.
const (
	ToolTestResults          = "get_player_test_results"
	ToolTrainingHistory      = "get_player_training_history"
	ToolGoals                = "get_player_goals"
	ToolCategoryRequirements = "get_player_category_requirements"
	ToolUpcomingTournaments  = "get_upcoming_tournaments"
	ToolTrainingSuggestion   = "create_training_suggestion"
)

// TestResultsInput is the input for get_player_test_results.
type TestResultsInput struct {
	PlayerID string `json:"player_id" jsonschema:"Spillerens ID"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Antall resultater å hente (standard: 10)"`
	Category string `json:"category,omitempty" jsonschema:"Filtrer på testkategori (putting, driving, iron, short_game, mental, physical)"`
}

// TrainingHistoryInput is the input for get_player_training_history.
type TrainingHistoryInput struct {
	PlayerID string `json:"player_id" jsonschema:"Spillerens ID"`
	Days     int    `json:"days,omitempty" jsonschema:"Antall dager tilbake å hente (standard: 30)"`
}

// GoalsInput is the input for get_player_goals.
type GoalsInput struct {
	PlayerID string `json:"player_id" jsonschema:"Spillerens ID"`
}

// CategoryRequirementsInput is the input for get_player_category_requirements.
type CategoryRequirementsInput struct {
	PlayerID string `json:"player_id" jsonschema:"Spillerens ID"`
}

// UpcomingTournamentsInput is the input for get_upcoming_tournaments.
type UpcomingTournamentsInput struct {
	PlayerID string `json:"player_id" jsonschema:"Spillerens ID"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Antall turneringer å hente (standard: 5)"`
}

// TrainingSuggestionInput is the input for create_training_suggestion.
type TrainingSuggestionInput struct {
	PlayerID        string   `json:"player_id" jsonschema:"Spillerens ID"`
	Title           string   `json:"title" jsonschema:"Tittel på treningsforslaget"`
	Description     string   `json:"description,omitempty" jsonschema:"Beskrivelse av treningen"`
	SessionType     string   `json:"session_type" jsonschema:"Type trening: technical, physical, mental, short_game, putting, driving"`
	DurationMinutes int      `json:"duration_minutes" jsonschema:"Estimert varighet i minutter"`
	Exercises       []string `json:"exercises,omitempty" jsonschema:"Liste over øvelser"`
}

// Definitions builds the declarations for every coaching tool, with input
// schemas derived from the typed input structs.
func Definitions() ([]claude.Tool, error) {
	defs := make([]claude.Tool, 0, 6)

	add := func(name, description string, schema *jsonschema.Schema, err error) error {
		if err != nil {
			return fmt.Errorf("deriving schema for %s: %w", name, err)
		}
		converted, err := toToolSchema(schema)
		if err != nil {
			return fmt.Errorf("converting schema for %s: %w", name, err)
		}
		defs = append(defs, claude.Tool{Name: name, Description: description, InputSchema: converted})
		return nil
	}

	testResults, err := jsonschema.For[TestResultsInput](nil)
	if err := add(ToolTestResults,
		"Henter spillerens testresultater fra siste periode. Bruk denne for å analysere spillerens ferdigheter og progresjon.",
		testResults, err); err != nil {
		return nil, err
	}

	history, err := jsonschema.For[TrainingHistoryInput](nil)
	if err := add(ToolTrainingHistory,
		"Henter spillerens treningshistorikk. Bruk for å forstå treningsvaner og volum.",
		history, err); err != nil {
		return nil, err
	}

	goals, err := jsonschema.For[GoalsInput](nil)
	if err := add(ToolGoals,
		"Henter spillerens aktive mål og fremgang.",
		goals, err); err != nil {
		return nil, err
	}

	requirements, err := jsonschema.For[CategoryRequirementsInput](nil)
	if err := add(ToolCategoryRequirements,
		"Henter kravene for spillerens neste kategori og nåværende status.",
		requirements, err); err != nil {
		return nil, err
	}

	tournaments, err := jsonschema.For[UpcomingTournamentsInput](nil)
	if err := add(ToolUpcomingTournaments,
		"Henter kommende turneringer spilleren er påmeldt eller kan delta i.",
		tournaments, err); err != nil {
		return nil, err
	}

	suggestion, err := jsonschema.For[TrainingSuggestionInput](nil)
	if err := add(ToolTrainingSuggestion,
		"Oppretter et treningsforslag som spilleren kan se i sin app. Bruk når du gir konkrete treningsanbefalinger.",
		suggestion, err); err != nil {
		return nil, err
	}

	return defs, nil
}

// toToolSchema flattens a derived schema into the wire shape the provider
// expects (type/properties/required).
func toToolSchema(s *jsonschema.Schema) (claude.ToolSchema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return claude.ToolSchema{}, fmt.Errorf("marshaling schema: %w", err)
	}
	var out claude.ToolSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		return claude.ToolSchema{}, fmt.Errorf("unmarshaling schema: %w", err)
	}
	if out.Type == "" {
		out.Type = "object"
	}
	return out, nil
}
