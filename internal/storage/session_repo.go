package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks docchat/internal/storage SessionStore

import (
	"context"
	"database/sql"
	"fmt"

	"docchat/internal/apperr"
)

// SessionStore defines the interface for session storage operations.
type SessionStore interface {
	// Create inserts a new session record.
	Create(ctx context.Context, session *SessionRecord) error
	// Get returns a session by ID, or apperr.ErrNotFound.
	Get(ctx context.Context, id string) (*SessionRecord, error)
	// Touch updates a session's last_active_at to now.
	Touch(ctx context.Context, id string) error
}

// SessionRepo provides methods for session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new session record.
func (r *SessionRepo) Create(ctx context.Context, session *SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, upload_dir, index_dir) VALUES (?, ?, ?)",
		session.ID, session.UploadDir, session.IndexDir,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get returns a session by ID, or apperr.ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var session SessionRecord
	var createdAtStr, lastActiveAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, upload_dir, index_dir, created_at, last_active_at FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.UploadDir, &session.IndexDir, &createdAtStr, &lastActiveAtStr)

	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if session.CreatedAt, err = parseSQLiteTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	if session.LastActiveAt, err = parseSQLiteTime(lastActiveAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse last_active_at timestamp: %w", err)
	}

	return &session, nil
}

// Touch updates a session's last_active_at to now.
func (r *SessionRepo) Touch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_active_at = CURRENT_TIMESTAMP WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
