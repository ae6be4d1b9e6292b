package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	bolt "go.etcd.io/bbolt"

	"docchat/internal/apperr"
	"docchat/internal/contextutil"
)

const (
	dbFileName       = "index.db"
	manifestFileName = "index.json"
)

var vectorsBucket = []byte("vectors")

// manifest is the sidecar written next to the bolt file. An index directory
// counts as present only when both artifacts exist.
type manifest struct {
	Dimension int `json:"dimension"`
	Count     int `json:"count"`
}

// storedEntry is the JSON value persisted per document key.
type storedEntry struct {
	Vector   []float32      `json:"v"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"m,omitempty"`
}

// Store persists embedded document chunks in a bolt file and keeps an
// in-memory copy for brute-force cosine search. Safe for concurrent use.
type Store struct {
	dir       string
	dimension int

	db *bolt.DB

	mu      sync.RWMutex
	entries map[string]storedEntry
}

// Exists reports whether dir holds a complete index, meaning both the bolt
// file and the manifest are present. A directory with only one of the two is
// treated as absent so a partially written index is rebuilt rather than
// loaded.
func Exists(dir string) bool {
	for _, name := range []string{dbFileName, manifestFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Create initializes a new index at dir with the given embedding dimension,
// replacing any artifacts already there.
func Create(dir string, dimension int) (*Store, error) {
	const op = "vectorstore.Create"

	if dimension <= 0 {
		return nil, apperr.Msg(op, apperr.ErrValidation, "dimension must be positive, got %d", dimension)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	dbPath := filepath.Join(dir, dbFileName)
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	db, err := bolt.Open(dbPath, 0o644, nil)
	if err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(vectorsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	s := &Store{
		dir:       dir,
		dimension: dimension,
		db:        db,
		entries:   make(map[string]storedEntry),
	}
	if err := s.writeManifest(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Open loads an existing index from dir into memory. It returns
// apperr.ErrNotFound when the index artifacts are missing.
func Open(dir string) (*Store, error) {
	const op = "vectorstore.Open"

	if !Exists(dir) {
		return nil, apperr.Msg(op, apperr.ErrNotFound, "no index at %s", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperr.E(op, apperr.ErrIO, fmt.Errorf("parse manifest: %w", err))
	}
	if m.Dimension <= 0 {
		return nil, apperr.Msg(op, apperr.ErrIO, "manifest at %s has invalid dimension %d", dir, m.Dimension)
	}

	db, err := bolt.Open(filepath.Join(dir, dbFileName), 0o644, nil)
	if err != nil {
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	entries := make(map[string]storedEntry)
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", vectorsBucket)
		}
		return b.ForEach(func(k, v []byte) error {
			var e storedEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %s: %w", k, err)
			}
			entries[string(k)] = e
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, apperr.E(op, apperr.ErrIO, err)
	}

	return &Store{
		dir:       dir,
		dimension: m.Dimension,
		db:        db,
		entries:   entries,
	}, nil
}

// Add persists docs with their embedding vectors and refreshes the manifest.
// Documents reusing an existing ID overwrite the stored entry.
func (s *Store) Add(ctx context.Context, docs []Document, vectors [][]float32) error {
	const op = "vectorstore.Add"
	logger := contextutil.LoggerFromContext(ctx)

	if len(docs) != len(vectors) {
		return apperr.Msg(op, apperr.ErrValidation, "got %d documents but %d vectors", len(docs), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != s.dimension {
			return apperr.Msg(op, apperr.ErrValidation, "vector %d has dimension %d, store expects %d", i, len(vec), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(vectorsBucket)
		for i, doc := range docs {
			entry := storedEntry{Vector: vectors[i], Text: doc.Text, Metadata: doc.Metadata}
			raw, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encode entry %s: %w", doc.ID, err)
			}
			if err := b.Put([]byte(doc.ID), raw); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}

	for i, doc := range docs {
		s.entries[doc.ID] = storedEntry{Vector: vectors[i], Text: doc.Text, Metadata: doc.Metadata}
	}

	if err := s.writeManifest(); err != nil {
		return err
	}

	logger.Debug("documents added to index", "count", len(docs), "total", len(s.entries))
	return nil
}

// Search returns the k entries closest to query by cosine similarity, best
// first. Fewer than k results are returned when the store is smaller than k.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	const op = "vectorstore.Search"

	if k <= 0 {
		return nil, apperr.Msg(op, apperr.ErrValidation, "k must be positive, got %d", k)
	}
	if len(query) != s.dimension {
		return nil, apperr.Msg(op, apperr.ErrValidation, "query has dimension %d, store expects %d", len(query), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.entries))
	for id, entry := range s.entries {
		results = append(results, SearchResult{
			Document: Document{ID: id, Text: entry.Text, Metadata: entry.Metadata},
			Score:    CosineSimilarity(query, entry.Vector),
			Vector:   entry.Vector,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the embedding dimension the store was created with.
func (s *Store) Dimension() int {
	return s.dimension
}

// Dir returns the index directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the underlying bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// writeManifest persists the manifest via temp file and rename so readers
// never observe a half-written sidecar. Caller must hold s.mu for the count.
func (s *Store) writeManifest() error {
	const op = "vectorstore.writeManifest"

	raw, err := json.MarshalIndent(manifest{Dimension: s.dimension, Count: len(s.entries)}, "", "  ")
	if err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	tmp := filepath.Join(s.dir, manifestFileName+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, manifestFileName)); err != nil {
		return apperr.E(op, apperr.ErrIO, err)
	}
	return nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Zero-length or zero-magnitude inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
