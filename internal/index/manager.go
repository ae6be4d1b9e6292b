package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"docchat/internal/apperr"
	"docchat/internal/contextutil"
	"docchat/internal/vectorstore"
)

//go:generate mockgen -source=manager.go -destination=mocks/mock_embedder.go -package=mocks

// Embedder turns texts into embedding vectors, one per input, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

const ledgerFileName = "ingested_meta.json"

// ledgerFile is the on-disk shape of the ingestion ledger.
type ledgerFile struct {
	Rows map[string]bool `json:"rows"`
}

// Manager owns one index directory: the vector store, plus a ledger of
// chunk fingerprints used to drop duplicates on re-ingestion. LoadOrCreate
// must succeed before AddDocuments or Retriever can be used.
type Manager struct {
	dir      string
	embedder Embedder

	mu     sync.Mutex
	store  *vectorstore.Store
	ledger map[string]bool
}

// NewManager returns a manager for the index at dir. No disk access happens
// until LoadOrCreate.
func NewManager(dir string, embedder Embedder) *Manager {
	return &Manager{
		dir:      dir,
		embedder: embedder,
		ledger:   make(map[string]bool),
	}
}

// Dir returns the index directory.
func (m *Manager) Dir() string {
	return m.dir
}

// LoadOrCreate opens the index at the manager's directory if one exists,
// otherwise builds a fresh one from the seed texts and reports created=true.
// Seed fingerprints are recorded in the ledger so re-ingesting the same
// content later adds nothing. Creating an index requires at least one seed
// text; loading ignores the seeds entirely.
func (m *Manager) LoadOrCreate(ctx context.Context, texts []string, metadatas []map[string]any) (created bool, err error) {
	const op = "index.LoadOrCreate"
	logger := contextutil.LoggerFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return false, nil
	}

	if vectorstore.Exists(m.dir) {
		store, err := vectorstore.Open(m.dir)
		if err != nil {
			return false, err
		}
		ledger, err := loadLedger(ctx, filepath.Join(m.dir, ledgerFileName))
		if err != nil {
			store.Close()
			return false, err
		}
		m.store = store
		m.ledger = ledger
		logger.Info("index loaded", "dir", m.dir, "documents", store.Count(), "fingerprints", len(ledger))
		return false, nil
	}

	if len(texts) == 0 {
		return false, apperr.Msg(op, apperr.ErrConfiguration, "cannot create index at %s without seed documents", m.dir)
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return false, apperr.Msg(op, apperr.ErrValidation, "got %d texts but %d metadatas", len(texts), len(metadatas))
	}

	// Seeds go through the same fingerprint dedup as AddDocuments, so a batch
	// with repeated chunks indexes each one once.
	var docs []vectorstore.Document
	var seedTexts []string
	ledger := make(map[string]bool, len(texts))
	for i, text := range texts {
		var md map[string]any
		if metadatas != nil {
			md = metadatas[i]
		}
		fp := Fingerprint(text, md)
		if ledger[fp] {
			continue
		}
		ledger[fp] = true
		docs = append(docs, vectorstore.Document{ID: uuid.NewString(), Text: text, Metadata: md})
		seedTexts = append(seedTexts, text)
	}

	vectors, err := m.embedder.EmbedTexts(ctx, seedTexts)
	if err != nil {
		return false, fmt.Errorf("embedding seed documents: %w", err)
	}

	store, err := vectorstore.Create(m.dir, len(vectors[0]))
	if err != nil {
		return false, err
	}
	if err := store.Add(ctx, docs, vectors); err != nil {
		store.Close()
		return false, err
	}

	if err := saveLedger(filepath.Join(m.dir, ledgerFileName), ledger); err != nil {
		store.Close()
		return false, err
	}

	m.store = store
	m.ledger = ledger
	logger.Info("index created", "dir", m.dir, "documents", len(docs))
	return true, nil
}

// AddDocuments indexes the chunks whose fingerprints have not been seen
// before and returns how many were actually added. Duplicates, both against
// the ledger and within the batch, are skipped. The index is persisted before
// the ledger, so a crash between the two re-adds chunks rather than losing
// them.
func (m *Manager) AddDocuments(ctx context.Context, docs []vectorstore.Document) (int, error) {
	const op = "index.AddDocuments"
	logger := contextutil.LoggerFromContext(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return 0, apperr.Msg(op, apperr.ErrState, "index at %s is not loaded", m.dir)
	}

	var fresh []vectorstore.Document
	var fingerprints []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		fp := Fingerprint(doc.Text, doc.Metadata)
		if m.ledger[fp] || seen[fp] {
			continue
		}
		seen[fp] = true
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		fresh = append(fresh, doc)
		fingerprints = append(fingerprints, fp)
	}

	if len(fresh) == 0 {
		logger.Info("no new documents to index", "dir", m.dir, "offered", len(docs))
		return 0, nil
	}

	texts := make([]string, len(fresh))
	for i, doc := range fresh {
		texts[i] = doc.Text
	}
	vectors, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding documents: %w", err)
	}

	if err := m.store.Add(ctx, fresh, vectors); err != nil {
		return 0, err
	}

	for _, fp := range fingerprints {
		m.ledger[fp] = true
	}
	if err := saveLedger(filepath.Join(m.dir, ledgerFileName), m.ledger); err != nil {
		return len(fresh), err
	}

	logger.Info("documents indexed", "dir", m.dir, "added", len(fresh), "skipped", len(docs)-len(fresh))
	return len(fresh), nil
}

// Retriever builds a retriever over the loaded index with the given options.
// It fails with ErrState before LoadOrCreate has run.
func (m *Manager) Retriever(opts Options) (*Retriever, error) {
	const op = "index.Retriever"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil, apperr.Msg(op, apperr.ErrState, "index at %s is not loaded", m.dir)
	}
	return newRetriever(m.store, m.embedder, opts)
}

// Count returns the number of indexed documents, or 0 before load.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return 0
	}
	return m.store.Count()
}

// Close releases the underlying store. The manager can be reloaded with
// another LoadOrCreate call afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}

// loadLedger reads the ledger leniently: a missing or unparseable file yields
// an empty ledger so a damaged sidecar never blocks the session. Duplicates
// may be re-indexed after that, which is the cheaper failure.
func loadLedger(ctx context.Context, path string) (map[string]bool, error) {
	const op = "index.loadLedger"

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]bool), nil
	}
	if err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}
	var file ledgerFile
	if err := json.Unmarshal(raw, &file); err != nil {
		contextutil.LoggerFromContext(ctx).Warn("ledger unreadable, starting empty",
			"path", path, "error", err)
		return make(map[string]bool), nil
	}
	if file.Rows == nil {
		file.Rows = make(map[string]bool)
	}
	return file.Rows, nil
}

func saveLedger(path string, ledger map[string]bool) error {
	const op = "index.saveLedger"

	raw, err := json.MarshalIndent(ledgerFile{Rows: ledger}, "", "  ")
	if err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	return nil
}
