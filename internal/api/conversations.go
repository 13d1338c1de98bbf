package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/akgolf/aicoach/internal/claude"
	"github.com/akgolf/aicoach/internal/coach"
	"github.com/akgolf/aicoach/internal/conversation"
)

const msgConversationNotFound = "Conversation not found"

// conversationID parses the {id} path segment. Malformed IDs are reported as
// not found so the response does not differ from a conversation the caller
// does not own.
func (s *Server) conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	opts := conversation.ListOptions{
		IncludeInactive: r.URL.Query().Get("includeInactive") == "true",
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = n
	}

	summaries, err := s.conversations.ListForPlayer(r.Context(), playerID, opts)
	if err != nil {
		s.logger.Error("listing conversations", "player_id", playerID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	respondData(w, http.StatusOK, summaries)
}

type createConversationRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	conv, err := s.conversations.Create(r.Context(), playerID, req.Message)
	if err != nil {
		s.logger.Error("creating conversation", "player_id", playerID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	respondData(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	conv, err := s.conversations.Get(r.Context(), id, playerID)
	if err != nil {
		s.logger.Error("fetching conversation", "conversation_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	if conv == nil {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}
	respondData(w, http.StatusOK, conv)
}

type conversationChatRequest struct {
	Message  string `json:"message"`
	UseTools *bool  `json:"useTools"`
}

// conversationChatResponse pairs the coach's answer with the updated record
// so clients can refresh their view in one round trip.
type conversationChatResponse struct {
	Response     string                     `json:"response"`
	Tokens       claude.Usage               `json:"tokens"`
	ToolsUsed    []string                   `json:"toolsUsed,omitempty"`
	Conversation *conversation.Conversation `json:"conversation"`
}

func (s *Server) handleConversationChat(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	var req conversationChatRequest
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

	conv, err := s.conversations.Get(r.Context(), id, playerID)
	if err != nil {
		s.logger.Error("fetching conversation", "conversation_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}
	if conv == nil {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}

	// History is the transcript as it stood before this turn.
	history := make([]claude.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		role := claude.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = claude.RoleAssistant
		}
		history = append(history, claude.Message{Role: role, Content: m.Content})
	}

	if _, err := s.conversations.AddMessage(r.Context(), id, playerID, conversation.Message{
		Role:    conversation.RoleUser,
		Content: req.Message,
	}, nil, nil); err != nil {
		s.logger.Error("recording user message", "conversation_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update conversation")
		return
	}

	result := s.coach.Chat(r.Context(), playerID, req.Message, history, coach.ChatOpts{UseTools: useTools})

	updated, err := s.conversations.AddMessage(r.Context(), id, playerID, conversation.Message{
		Role:    conversation.RoleAssistant,
		Content: result.Response,
	}, &conversation.TokenUsage{
		Input:  result.Tokens.InputTokens,
		Output: result.Tokens.OutputTokens,
	}, result.ToolsUsed)
	if err != nil {
		s.logger.Error("recording assistant message", "conversation_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update conversation")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}

	respondData(w, http.StatusOK, conversationChatResponse{
		Response:     result.Response,
		Tokens:       result.Tokens,
		ToolsUsed:    result.ToolsUsed,
		Conversation: updated,
	})
}

type renameConversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	var req renameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	renamed, err := s.conversations.Rename(r.Context(), id, playerID, req.Title)
	if err != nil {
		s.logger.Error("renaming conversation", "conversation_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to rename conversation")
		return
	}
	if !renamed {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"renamed": true})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}
	id, ok := s.conversationID(w, r)
	if !ok {
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	var (
		removed bool
		err     error
	)
	if permanent {
		removed, err = s.conversations.Delete(r.Context(), id, playerID)
	} else {
		removed, err = s.conversations.Archive(r.Context(), id, playerID)
	}
	if err != nil {
		s.logger.Error("deleting conversation", "conversation_id", id, "permanent", permanent, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, msgConversationNotFound)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true, "permanent": permanent})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	playerID, ok := s.playerID(w, r)
	if !ok {
		return
	}

	stats, err := s.conversations.StatsForPlayer(r.Context(), playerID)
	if err != nil {
		s.logger.Error("fetching conversation stats", "player_id", playerID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	respondData(w, http.StatusOK, stats)
}
