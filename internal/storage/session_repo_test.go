package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"docchat/internal/apperr"
)

func newTestDB(t *testing.T) *SessionRepo {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSessionRepo(db)
}

func TestSessionCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	session := &SessionRecord{
		ID:        "session_20260830_120000_abcd1234",
		UploadDir: "/data/session_20260830_120000_abcd1234",
		IndexDir:  "/index/session_20260830_120000_abcd1234",
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != session.ID || got.UploadDir != session.UploadDir || got.IndexDir != session.IndexDir {
		t.Errorf("Get() = %+v, want fields from %+v", got, session)
	}
	if got.CreatedAt.IsZero() || got.LastActiveAt.IsZero() {
		t.Errorf("Get() timestamps not populated: %+v", got)
	}
}

func TestSessionGetNotFound(t *testing.T) {
	repo := newTestDB(t)
	_, err := repo.Get(context.Background(), "session_unknown")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSessionCreateDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	session := &SessionRecord{ID: "session_dup", UploadDir: "/a", IndexDir: "/b"}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, session); err == nil {
		t.Error("Create() of duplicate ID succeeded, want error")
	}
}

func TestSessionTouch(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)

	session := &SessionRecord{ID: "session_touch", UploadDir: "/a", IndexDir: "/b"}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Touch(ctx, session.ID); err != nil {
		t.Errorf("Touch() error = %v", err)
	}
	if err := repo.Touch(ctx, "session_unknown"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Touch(unknown) error = %v, want ErrNotFound", err)
	}
}
