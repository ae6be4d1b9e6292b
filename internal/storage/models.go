package storage

import "time"

// SessionRecord represents a chat session and its on-disk directories.
type SessionRecord struct {
	ID           string // session_<timestamp>_<suffix>
	UploadDir    string // where raw uploads are stored
	IndexDir     string // where the vector index lives
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// DocumentRecord represents one uploaded file within a session.
type DocumentRecord struct {
	ID           string // UUID
	SessionID    string // Foreign key to sessions.id
	OriginalName string // Name the client uploaded the file under
	StoredPath   string // Sanitized unique path on disk
	UploadedAt   time.Time
}
