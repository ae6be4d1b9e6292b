package handlers

import (
	"context"
	"mime/multipart"
	"sync"

	"docchat/internal/config"
	"docchat/internal/contextutil"
	"docchat/internal/index"
	"docchat/internal/ingest"
	"docchat/internal/llm"
	"docchat/internal/rag"
	"docchat/internal/storage"
)

// SessionManager coordinates the per-session pipeline: it owns the open
// index manager, the answer chain, and the in-memory conversation history
// for each active session, and keeps the session registry in SQLite in
// sync. One open index per session is shared by concurrent requests.
type SessionManager struct {
	cfg       *config.Config
	embedder  index.Embedder
	llmClient rag.LLMClient
	ingestor  *ingest.Ingestor
	sessions  storage.SessionStore
	documents storage.DocumentStore

	mu     sync.Mutex
	active map[string]*sessionState
}

// sessionState is the live, in-memory side of one session. Its mutex
// serializes uploads and chats for that session; different sessions do not
// block each other.
type sessionState struct {
	mu      sync.Mutex
	manager *index.Manager
	chain   *rag.Chain
	history []llm.Message
}

// NewSessionManager wires the pipeline dependencies together.
func NewSessionManager(cfg *config.Config, embedder index.Embedder, llmClient rag.LLMClient, sessions storage.SessionStore, documents storage.DocumentStore) *SessionManager {
	return &SessionManager{
		cfg:       cfg,
		embedder:  embedder,
		llmClient: llmClient,
		ingestor:  ingest.NewIngestor(cfg),
		sessions:  sessions,
		documents: documents,
		active:    make(map[string]*sessionState),
	}
}

// UploadResult is what one upload call produced.
type UploadResult struct {
	SessionID   string
	ChunksAdded int
}

// Upload ingests files into the session's index, creating the session when
// sessionID is empty. Returns the (possibly new) session ID and the number
// of chunks indexed.
func (m *SessionManager) Upload(ctx context.Context, sessionID string, files []*multipart.FileHeader) (*UploadResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if sessionID == "" {
		sessionID = ingest.NewSessionID()
		record := &storage.SessionRecord{
			ID:        sessionID,
			UploadDir: m.ingestor.UploadDir(sessionID),
			IndexDir:  m.ingestor.IndexDir(sessionID),
		}
		if err := m.sessions.Create(ctx, record); err != nil {
			return nil, err
		}
		logger.Info("session created", "session_id", sessionID)
	} else {
		if _, err := m.sessions.Get(ctx, sessionID); err != nil {
			return nil, err
		}
	}

	state := m.stateFor(sessionID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.manager == nil {
		state.manager = index.NewManager(m.ingestor.IndexDir(sessionID), m.embedder)
	}

	summary, err := m.ingestor.Ingest(ctx, sessionID, state.manager, files)
	if err != nil {
		return nil, err
	}

	for _, sf := range summary.SavedFiles {
		record := &storage.DocumentRecord{SessionID: sessionID, OriginalName: sf.OriginalName, StoredPath: sf.Path}
		if err := m.documents.Add(ctx, record); err != nil {
			logger.Error("failed to record uploaded document", "session_id", sessionID, "path", sf.Path, "error", err)
		}
	}
	if err := m.sessions.Touch(ctx, sessionID); err != nil {
		logger.Warn("failed to touch session", "session_id", sessionID, "error", err)
	}

	return &UploadResult{SessionID: sessionID, ChunksAdded: summary.ChunksAdded}, nil
}

// Chat answers one user message for the session, using and extending its
// conversation history.
func (m *SessionManager) Chat(ctx context.Context, sessionID, message string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := m.sessions.Get(ctx, sessionID); err != nil {
		return "", err
	}

	state := m.stateFor(sessionID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.chain == nil {
		if err := m.buildChain(ctx, sessionID, state); err != nil {
			return "", err
		}
	}

	answer, err := state.chain.Invoke(ctx, message, state.history)
	if err != nil {
		return "", err
	}

	state.history = append(state.history,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	if err := m.sessions.Touch(ctx, sessionID); err != nil {
		logger.Warn("failed to touch session", "session_id", sessionID, "error", err)
	}
	return answer, nil
}

// Close releases all open indexes.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, state := range m.active {
		state.mu.Lock()
		if state.manager != nil {
			_ = state.manager.Close()
			state.manager = nil
		}
		state.mu.Unlock()
		delete(m.active, id)
	}
}

func (m *SessionManager) stateFor(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.active[sessionID]
	if !ok {
		state = &sessionState{}
		m.active[sessionID] = state
	}
	return state
}

// buildChain constructs the session's answer chain. When the index is not
// open yet, for example after a server restart, it is reloaded from disk.
// Caller holds state.mu.
func (m *SessionManager) buildChain(ctx context.Context, sessionID string, state *sessionState) error {
	opts := index.Options{
		K:              m.cfg.RetrievalK,
		SearchType:     m.cfg.SearchType,
		FetchK:         m.cfg.FetchK,
		LambdaMult:     m.cfg.LambdaMult,
		ScoreThreshold: m.cfg.ScoreThreshold,
	}

	var retriever *index.Retriever
	var err error
	if state.manager != nil {
		retriever, err = state.manager.Retriever(opts)
		if err != nil {
			return err
		}
	} else {
		state.manager, retriever, err = rag.LoadRetriever(ctx, m.ingestor.IndexDir(sessionID), m.embedder, opts)
		if err != nil {
			return err
		}
	}

	params := llm.ChatParams{Temperature: m.cfg.Temperature, MaxTokens: m.cfg.MaxOutputTokens}
	chain, err := rag.NewChain(m.llmClient, retriever, params)
	if err != nil {
		return err
	}
	state.chain = chain
	return nil
}
