// Package api exposes the coaching subsystem over HTTP. All endpoints live
// under /api/v1/ai and answer with a {success, data|error} JSON envelope,
// except the streaming endpoint which speaks server-sent events.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/coach"
	"github.com/akgolf/aicoach/internal/conversation"
	"github.com/akgolf/aicoach/internal/log"
	"github.com/akgolf/aicoach/internal/playerdata"
)

// CoachService is the slice of the coach the handlers call.
type CoachService interface {
	Status() coach.Status
	Chat(ctx context.Context, playerID, message string, history []claude.Message, opts coach.ChatOpts) coach.ChatResult
	TrainingRecommendations(ctx context.Context, playerID string, opts coach.ChatOpts) coach.RecommendationsResult
	AnalyzeBreakingPoint(ctx context.Context, playerID, area, description string) coach.AnalysisResult
	PlanSuggestions(ctx context.Context, playerID string, req coach.PlanRequest) coach.PlanSuggestions
}

// ConversationStore is the slice of the conversation store the handlers call.
type ConversationStore interface {
	Create(ctx context.Context, playerID, firstMessage string) (*conversation.Conversation, error)
	Get(ctx context.Context, id uuid.UUID, playerID string) (*conversation.Conversation, error)
	ListForPlayer(ctx context.Context, playerID string, opts conversation.ListOptions) ([]conversation.Summary, error)
	AddMessage(ctx context.Context, id uuid.UUID, playerID string, msg conversation.Message, usage *conversation.TokenUsage, toolsUsed []string) (*conversation.Conversation, error)
	Rename(ctx context.Context, id uuid.UUID, playerID, title string) (bool, error)
	Archive(ctx context.Context, id uuid.UUID, playerID string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID, playerID string) (bool, error)
	StatsForPlayer(ctx context.Context, playerID string) (conversation.Stats, error)
}

// StreamProvider produces raw model events for the SSE endpoint.
type StreamProvider interface {
	Available() bool
	ChatStream(ctx context.Context, messages []claude.Message, opts claude.ChatOptions) <-chan claude.StreamEvent
}

// PlayerContextProvider supplies the player profile used to build the
// streaming system prompt.
type PlayerContextProvider interface {
	PlayerContext(ctx context.Context, playerID string) (*playerdata.PlayerContext, error)
}

// ServerConfig carries the dependencies for NewServer. All fields except
// ToolDefs are required.
type ServerConfig struct {
	Logger        log.Logger
	Coach         CoachService
	Conversations ConversationStore
	Stream        StreamProvider
	Players       PlayerContextProvider
	ToolDefs      []claude.Tool
}

// Server routes coaching requests to the coach, the conversation store and
// the streaming provider.
type Server struct {
	logger        log.Logger
	coach         CoachService
	conversations ConversationStore
	stream        StreamProvider
	players       PlayerContextProvider
	toolDefs      []claude.Tool
	mux           *http.ServeMux
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Coach == nil {
		return nil, fmt.Errorf("creating server: coach is required")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("creating server: conversation store is required")
	}
	if cfg.Stream == nil {
		return nil, fmt.Errorf("creating server: stream provider is required")
	}
	if cfg.Players == nil {
		return nil, fmt.Errorf("creating server: player context provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		logger:        logger,
		coach:         cfg.Coach,
		conversations: cfg.Conversations,
		stream:        cfg.Stream,
		players:       cfg.Players,
		toolDefs:      cfg.ToolDefs,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/ai/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/v1/ai/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/v1/ai/chat/stream", s.handleChatStream)
	s.mux.HandleFunc("GET /api/v1/ai/recommendations", s.handleRecommendations)
	s.mux.HandleFunc("POST /api/v1/ai/analyze-breaking-point", s.handleAnalyzeBreakingPoint)
	s.mux.HandleFunc("POST /api/v1/ai/plan-suggestions", s.handlePlanSuggestions)

	s.mux.HandleFunc("GET /api/v1/ai/conversations", s.handleListConversations)
	s.mux.HandleFunc("POST /api/v1/ai/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/v1/ai/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("POST /api/v1/ai/conversations/{id}/chat", s.handleConversationChat)
	s.mux.HandleFunc("PATCH /api/v1/ai/conversations/{id}", s.handleRenameConversation)
	s.mux.HandleFunc("DELETE /api/v1/ai/conversations/{id}", s.handleDeleteConversation)
	s.mux.HandleFunc("GET /api/v1/ai/stats", s.handleStats)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// playerID reads the authenticated player from the request. It writes a 401
// and returns false when the header is missing.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Player-ID")
	if id == "" {
		respondError(w, http.StatusUnauthorized, "Player ID required")
		return "", false
	}
	return id, true
}
