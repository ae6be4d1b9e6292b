package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docchat/internal/contextutil"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	manager *SessionManager
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(manager *SessionManager) *ChatHandler {
	return &ChatHandler{manager: manager}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	answer, err := h.manager.Chat(ctx, req.SessionID, req.Message)
	if err != nil {
		logger.ErrorContext(ctx, "chat failed", "session_id", req.SessionID, "error", err)
		writeError(w, statusForError(err), "Failed to answer the question")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}
