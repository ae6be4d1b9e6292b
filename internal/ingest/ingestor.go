package ingest

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"

	"docchat/internal/apperr"
	"docchat/internal/config"
	"docchat/internal/contextutil"
	"docchat/internal/index"
	"docchat/internal/vectorstore"
)

// Ingestor runs the upload pipeline for a session: save files, extract text,
// split into chunks, and index them. It is stateless; index managers are
// owned by the caller so concurrent requests share one open index per
// session.
type Ingestor struct {
	cfg      *config.Config
	splitter *Splitter
}

// Summary reports what one ingestion run did.
type Summary struct {
	SavedFiles  []SavedFile
	Documents   int
	ChunksAdded int
}

func NewIngestor(cfg *config.Config) *Ingestor {
	return &Ingestor{
		cfg:      cfg,
		splitter: NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
	}
}

// UploadDir returns where a session's raw uploads are stored.
func (g *Ingestor) UploadDir(sessionID string) string {
	if g.cfg.UseSessionDirs {
		return filepath.Join(g.cfg.DataDir, sessionID)
	}
	return g.cfg.DataDir
}

// IndexDir returns where a session's index lives.
func (g *Ingestor) IndexDir(sessionID string) string {
	if g.cfg.UseSessionDirs {
		return filepath.Join(g.cfg.IndexDir, sessionID)
	}
	return g.cfg.IndexDir
}

// Ingest saves the uploaded files for the session and indexes their chunks
// through mgr, creating the index on first upload. Uploads containing no
// extractable text fail with ErrValidation.
func (g *Ingestor) Ingest(ctx context.Context, sessionID string, mgr *index.Manager, files []*multipart.FileHeader) (*Summary, error) {
	const op = "ingest.Ingest"
	logger := contextutil.LoggerFromContext(ctx)

	saved, err := SaveUploadedFiles(ctx, g.UploadDir(sessionID), files)
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, apperr.ES(op, sessionID, apperr.ErrValidation, errors.New("no supported files in upload"))
	}

	docs, err := LoadDocuments(ctx, saved)
	if err != nil {
		return nil, err
	}

	chunks := g.splitDocuments(docs)
	if len(chunks) == 0 {
		return nil, apperr.ES(op, sessionID, apperr.ErrValidation, errors.New("no text could be extracted from the upload"))
	}
	logger.Info("documents split", "documents", len(docs), "chunks", len(chunks),
		"chunk_size", g.cfg.ChunkSize, "chunk_overlap", g.cfg.ChunkOverlap)

	texts := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		metadatas[i] = c.Metadata
	}
	created, err := mgr.LoadOrCreate(ctx, texts, metadatas)
	if err != nil {
		return nil, err
	}

	// On create the whole index is this upload, so Count reflects exactly the
	// chunks that survived seed dedup.
	added := mgr.Count()
	if !created {
		added, err = mgr.AddDocuments(ctx, chunks)
		if err != nil {
			return nil, err
		}
	}
	logger.Info("index updated", "dir", mgr.Dir(), "chunks_added", added)

	return &Summary{SavedFiles: saved, Documents: len(docs), ChunksAdded: added}, nil
}

func (g *Ingestor) splitDocuments(docs []vectorstore.Document) []vectorstore.Document {
	var chunks []vectorstore.Document
	for _, doc := range docs {
		for _, piece := range g.splitter.Split(doc.Text) {
			md := make(map[string]any, len(doc.Metadata))
			for k, v := range doc.Metadata {
				md[k] = v
			}
			chunks = append(chunks, vectorstore.Document{Text: piece, Metadata: md})
		}
	}
	return chunks
}
