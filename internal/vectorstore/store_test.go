package vectorstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/apperr"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()

	if Exists(dir) {
		t.Error("expected empty directory to not count as an index")
	}

	// Only one of the two artifacts present.
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"dimension":3,"count":0}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if Exists(dir) {
		t.Error("expected directory with only a manifest to not count as an index")
	}

	store, err := Create(dir, 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer store.Close()

	if !Exists(dir) {
		t.Error("expected created index to exist")
	}
}

func TestCreateInvalidDimension(t *testing.T) {
	_, err := Create(t.TempDir(), 0)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Create() error = %v, want ErrValidation", err)
	}
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	store, err := Create(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer store.Close()

	docs := []Document{
		{ID: "a", Text: "alpha", Metadata: map[string]any{"source": "a.txt"}},
		{ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	if err := store.Add(ctx, docs, vectors); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := store.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Document.ID != "a" {
		t.Errorf("top result = %q, want %q", results[0].Document.ID, "a")
	}
	if results[1].Document.ID != "c" {
		t.Errorf("second result = %q, want %q", results[1].Document.ID, "c")
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("results not ordered by score: %f <= %f", results[0].Score, results[1].Score)
	}
	if got := results[0].Document.Metadata["source"]; got != "a.txt" {
		t.Errorf("metadata source = %v, want a.txt", got)
	}
}

func TestSearchMoreThanStored(t *testing.T) {
	ctx := context.Background()
	store, err := Create(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer store.Close()

	if err := store.Add(ctx, []Document{{ID: "a", Text: "only"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Search() returned %d results, want 1", len(results))
	}
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	store, err := Create(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer store.Close()

	tests := []struct {
		name    string
		docs    []Document
		vectors [][]float32
	}{
		{
			name:    "count mismatch",
			docs:    []Document{{ID: "a"}, {ID: "b"}},
			vectors: [][]float32{{1, 0, 0}},
		},
		{
			name:    "wrong dimension",
			docs:    []Document{{ID: "a"}},
			vectors: [][]float32{{1, 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Add(ctx, tt.docs, tt.vectors)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Add() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSearchValidation(t *testing.T) {
	ctx := context.Background()
	store, err := Create(t.TempDir(), 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer store.Close()

	if _, err := store.Search(ctx, []float32{1, 0, 0}, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Search(k=0) error = %v, want ErrValidation", err)
	}
	if _, err := store.Search(ctx, []float32{1, 0}, 3); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Search(bad dim) error = %v, want ErrValidation", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Create(dir, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	docs := []Document{
		{ID: "x", Text: "hello", Metadata: map[string]any{"source": "x.txt", "raw_id": "x.txt:p1"}},
		{ID: "y", Text: "world"},
	}
	if err := store.Add(ctx, docs, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	if got := reopened.Count(); got != 2 {
		t.Fatalf("Count() after reopen = %d, want 2", got)
	}
	if got := reopened.Dimension(); got != 2 {
		t.Errorf("Dimension() after reopen = %d, want 2", got)
	}

	results, err := reopened.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results[0].Document.Text != "hello" {
		t.Errorf("reopened text = %q, want %q", results[0].Document.Text, "hello")
	}
	if got := results[0].Document.Metadata["raw_id"]; got != "x.txt:p1" {
		t.Errorf("reopened raw_id = %v, want x.txt:p1", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
