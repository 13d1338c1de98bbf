// Package coach implements the agentic orchestrator: it builds
// context-aware prompts, drives the bounded tool-calling loop against the
// provider, and exposes the public coaching operations.
//
// No operation in this package returns an error to its caller. Provider
// unavailability, transport failures and budget exhaustion all degrade to
// fixed Norwegian fallback texts, per the error taxonomy the product
// promises its clients.
package coach

import (
	"context"
	"fmt"
	"strings"

	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/playerdata"
	"github.com/akgolf/aicoach/internal/tools"
)

// Fixed user-facing fallback texts.
const (
	// UnavailableMessage is returned when no provider credential is configured.
	UnavailableMessage = "Beklager, AI-treneren er ikke tilgjengelig akkurat nå. Kontakt treneren din direkte for hjelp."
	// ErrorMessage is returned when a provider call fails mid-operation.
	ErrorMessage = "Beklager, noe gikk galt. Prøv igjen om litt."
	// BudgetMessage is returned when the tool loop hits its round cap.
	BudgetMessage = "Beklager, dette tok lengre tid enn forventet. Prøv å stille et mer konkret spørsmål."
)

// DefaultMaxRounds bounds the tool loop when the config does not.
const DefaultMaxRounds = 5

// Provider is the model surface the orchestrator drives.
// *claude.Client satisfies it.
type Provider interface {
	Available() bool
	Model() string
	Chat(ctx context.Context, messages []claude.Message, opts claude.ChatOptions) (claude.ChatResponse, error)
}

// ToolExecutor runs one tool call and reports the outcome as an envelope,
// never as an error. *tools.Executor satisfies it.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input map[string]any) tools.Result
}

// ContextProvider fetches the player snapshot for prompt building.
// *playerdata.Store satisfies it.
type ContextProvider interface {
	PlayerContext(ctx context.Context, playerID string) (*playerdata.PlayerContext, error)
}

// Config holds the orchestrator tunables.
type Config struct {
	MaxRounds   int     // model round-trips per operation, 0 means DefaultMaxRounds
	Temperature float64 // passed through to the provider
}

// Coach drives coaching operations. Safe for concurrent use; all per-call
// state lives on the stack.
type Coach struct {
	provider    Provider
	exec        ToolExecutor
	players     ContextProvider
	toolDefs    []claude.Tool
	maxRounds   int
	temperature float64
	logger      log.Logger
}

// New creates a Coach.
func New(provider Provider, exec ToolExecutor, players ContextProvider, toolDefs []claude.Tool, cfg Config, logger log.Logger) (*Coach, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if players == nil {
		return nil, fmt.Errorf("context provider is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Coach{
		provider:    provider,
		exec:        exec,
		players:     players,
		toolDefs:    toolDefs,
		maxRounds:   maxRounds,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

// Status reports provider availability and the configured model.
type Status struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
}

// Status returns the current provider status.
func (c *Coach) Status() Status {
	return Status{Available: c.provider.Available(), Model: c.provider.Model()}
}

// playerContext fetches the snapshot, degrading to nil on any failure.
// A missing or unreachable player profile must never fail an operation.
func (c *Coach) playerContext(ctx context.Context, playerID string) *playerdata.PlayerContext {
	pc, err := c.players.PlayerContext(ctx, playerID)
	if err != nil {
		c.logger.Warn("player context fetch failed, using generic prompt", "player_id", playerID, "error", err)
		return nil
	}
	return pc
}

const basePersona = `Du er en erfaren golftrener for AK Golf Academy. Du hjelper juniorspillere med å utvikle seg gjennom konkrete, handlingsrettede råd basert på deres faktiske data.

Retningslinjer:
- Svar alltid på norsk.
- Vær konkret: referer til spillerens egne resultater, mål og treningshistorikk når du har dem.
- Hold svarene korte og praktiske. Spilleren er en juniorgolfer, ikke en trener.
- Ikke gi medisinske råd. Ved skader, henvis til fysioterapeut eller lege.`

// buildSystemPrompt assembles persona + optional player context block +
// optional tool instructions binding the trusted player id.
func (c *Coach) buildSystemPrompt(pc *playerdata.PlayerContext, playerID string, withTools bool) string {
	var b strings.Builder
	b.WriteString(basePersona)

	if pc != nil {
		b.WriteString("\n\nSpillerinformasjon:\n")
		fmt.Fprintf(&b, "- Navn: %s\n", pc.Name)
		if pc.Category != "" {
			fmt.Fprintf(&b, "- Kategori: %s\n", pc.Category)
		}
		if pc.Handicap != nil {
			fmt.Fprintf(&b, "- Handicap: %.1f\n", *pc.Handicap)
		}
		if pc.AverageScore != nil {
			fmt.Fprintf(&b, "- Snittscore: %.1f\n", *pc.AverageScore)
		}
		if len(pc.BreakingPoints) > 0 {
			b.WriteString("\nFokusområder under arbeid:\n")
			for _, bp := range pc.BreakingPoints {
				fmt.Fprintf(&b, "- %s (%d%% fremgang)", bp.Area, bp.Progress)
				if bp.Description != "" {
					fmt.Fprintf(&b, ": %s", bp.Description)
				}
				b.WriteString("\n")
			}
		}
		if len(pc.RecentSessions) > 0 {
			b.WriteString("\nSiste treningsøkter:\n")
			for _, sess := range pc.RecentSessions {
				fmt.Fprintf(&b, "- %s: %s, %d min\n", sess.Date, sess.Type, sess.Duration)
			}
		}
		if len(pc.Goals) > 0 {
			b.WriteString("\nSpillerens mål:\n")
			for _, goal := range pc.Goals {
				fmt.Fprintf(&b, "- %s\n", goal)
			}
		}
	}

	if withTools && len(c.toolDefs) > 0 {
		b.WriteString("\nDu har tilgang til følgende verktøy for å hente spillerens data:\n")
		for _, def := range c.toolDefs {
			fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
		}
		fmt.Fprintf(&b, "\nBruk alltid player_id %q når du kaller verktøy.\n", playerID)
	}

	return b.String()
}
