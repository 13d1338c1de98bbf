package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/coach"
)

// historyMessage is a prior turn supplied by the client.
type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toClaudeHistory(history []historyMessage) []claude.Message {
	msgs := make([]claude.Message, 0, len(history))
	for _, h := range history {
		role := claude.RoleUser
		if h.Role == "assistant" {
			role = claude.RoleAssistant
		}
		msgs = append(msgs, claude.Message{Role: role, Content: h.Content})
	}
	return msgs
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, s.coach.Status())
}

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []historyMessage `json:"conversationHistory"`
	UseTools            *bool            `json:"useTools"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	useTools := true
	if req.UseTools != nil {
		useTools = *req.UseTools
	}

	result := s.coach.Chat(r.Context(), playerID, req.Message, toClaudeHistory(req.ConversationHistory), coach.ChatOpts{UseTools: useTools})
	respondData(w, http.StatusOK, result)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	useTools := r.URL.Query().Get("useTools") != "false"

	result := s.coach.TrainingRecommendations(r.Context(), playerID, coach.ChatOpts{UseTools: useTools})
	respondData(w, http.StatusOK, result)
}

type analyzeRequest struct {
	Area        string `json:"area"`
	Description string `json:"description"`
}

func (s *Server) handleAnalyzeBreakingPoint(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Area) == "" {
		respondError(w, http.StatusBadRequest, "Area is required")
		return
	}

	result := s.coach.AnalyzeBreakingPoint(r.Context(), playerID, req.Area, req.Description)
	respondData(w, http.StatusOK, result)
}

type planRequest struct {
	WeeklyHoursTarget int      `json:"weeklyHoursTarget"`
	FocusAreas        []string `json:"focusAreas"`
	GoalDescription   string   `json:"goalDescription"`
}

func (s *Server) handlePlanSuggestions(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := s.coach.PlanSuggestions(r.Context(), playerID, coach.PlanRequest{
		WeeklyHoursTarget: req.WeeklyHoursTarget,
		FocusAreas:        req.FocusAreas,
		GoalDescription:   req.GoalDescription,
	})
	respondData(w, http.StatusOK, result)
}

// handleChatStream forwards raw model events over SSE. It bypasses the tool
// loop: events are relayed as-is and the client is responsible for rendering
// partial text.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}

	if !s.stream.Available() {
		respondError(w, http.StatusServiceUnavailable, "AI-tjenesten er ikke tilgjengelig")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	messages := append(toClaudeHistory(req.ConversationHistory), claude.Message{
		Role:    claude.RoleUser,
		Content: req.Message,
	})

	events := s.stream.ChatStream(r.Context(), messages, claude.ChatOptions{
		System:      s.streamSystemPrompt(r, playerID),
		Tools:       s.toolDefs,
		Temperature: 0.7,
	})
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encoding stream event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

// streamSystemPrompt builds the slimmed-down persona used for streaming. The
// full coaching prompt with tool guidance lives in the coach package.
func (s *Server) streamSystemPrompt(r *http.Request, playerID string) string {
	var b strings.Builder
	b.WriteString("Du er en erfaren golftrener ved AK Golf Academy. ")
	b.WriteString("Gi konkrete, handlingsrettede råd basert på spillerens situasjon. ")
	b.WriteString("Svar alltid på norsk.")

	pc, err := s.players.PlayerContext(r.Context(), playerID)
	if err != nil {
		s.logger.Warn("fetching player context for stream", "player_id", playerID, "error", err)
		return b.String()
	}
	if pc != nil {
		fmt.Fprintf(&b, "\n\nSpillerinfo: %s", pc.Name)
		if pc.Category != "" {
			fmt.Fprintf(&b, ", kategori %s", pc.Category)
		}
		if pc.Handicap != nil {
			fmt.Fprintf(&b, ", handicap %.1f", *pc.Handicap)
		}
		b.WriteString(".")
	}
	return b.String()
}
