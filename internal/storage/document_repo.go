package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docchat/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentStore defines the interface for uploaded-document records.
type DocumentStore interface {
	// Add records an uploaded file for a session.
	Add(ctx context.Context, doc *DocumentRecord) error
	// ListBySession returns a session's documents, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]DocumentRecord, error)
}

// DocumentRepo provides methods for document record operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Add records an uploaded file for a session. A missing ID gets a UUID.
func (r *DocumentRepo) Add(ctx context.Context, doc *DocumentRecord) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, session_id, original_name, stored_path) VALUES (?, ?, ?, ?)",
		doc.ID, doc.SessionID, doc.OriginalName, doc.StoredPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// ListBySession returns a session's documents, newest first.
func (r *DocumentRepo) ListBySession(ctx context.Context, sessionID string) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, session_id, original_name, stored_path, uploaded_at FROM documents WHERE session_id = ? ORDER BY uploaded_at DESC, id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		var uploadedAtStr string
		if err := rows.Scan(&doc.ID, &doc.SessionID, &doc.OriginalName, &doc.StoredPath, &uploadedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.UploadedAt, err = parseSQLiteTime(uploadedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse uploaded_at timestamp: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// parseSQLiteTime parses the DATETIME string formats SQLite emits.
func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
