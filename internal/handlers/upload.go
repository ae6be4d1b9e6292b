package handlers

import (
	"net/http"

	"docchat/internal/contextutil"
)

// maxUploadBytes caps the in-memory portion of a multipart upload; larger
// files spill to temp files.
const maxUploadBytes = 64 << 20

// UploadHandler handles HTTP requests for document uploads.
type UploadHandler struct {
	manager *SessionManager
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(manager *SessionManager) *UploadHandler {
	return &UploadHandler{manager: manager}
}

// UploadResponse represents the HTTP response payload for an upload.
type UploadResponse struct {
	SessionID   string `json:"session_id"`
	Indexed     bool   `json:"indexed"`
	ChunksAdded int    `json:"chunks_added"`
	Message     string `json:"message,omitempty"`
}

// ServeHTTP handles multipart uploads. Files go in the "files" form field;
// an optional "session_id" field adds to an existing session.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}
	sessionID := r.FormValue("session_id")

	result, err := h.manager.Upload(ctx, sessionID, files)
	if err != nil {
		logger.ErrorContext(ctx, "upload failed", "session_id", sessionID, "error", err)
		writeError(w, statusForError(err), "Failed to ingest uploaded files")
		return
	}

	resp := UploadResponse{
		SessionID:   result.SessionID,
		Indexed:     result.ChunksAdded > 0,
		ChunksAdded: result.ChunksAdded,
	}
	if result.ChunksAdded == 0 {
		resp.Message = "No new content; all chunks were already indexed"
	}
	writeJSON(w, http.StatusOK, resp)
}
