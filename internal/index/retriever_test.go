package index

import (
	"context"
	"errors"
	"testing"

	"docchat/internal/apperr"
)

func newLoadedManager(t *testing.T, embedder *mapEmbedder, texts []string) *Manager {
	t.Helper()
	m := NewManager(t.TempDir(), embedder)
	if _, err := m.LoadOrCreate(context.Background(), texts, nil); err != nil {
		t.Fatalf("LoadOrCreate() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRetrieverOptionsValidation(t *testing.T) {
	embedder := &mapEmbedder{dim: 3}
	m := newLoadedManager(t, embedder, []string{"doc"})

	tests := []struct {
		name string
		opts Options
	}{
		{name: "zero k", opts: Options{K: 0, SearchType: SearchSimilarity}},
		{name: "unknown search type", opts: Options{K: 3, SearchType: "knn"}},
		{name: "lambda out of range", opts: Options{K: 3, SearchType: SearchMMR, FetchK: 10, LambdaMult: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Retriever(tt.opts)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Retriever() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRetrieveSimilarity(t *testing.T) {
	ctx := context.Background()
	embedder := &mapEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"query":    {1, 0, 0},
			"close":    {0.9, 0.1, 0},
			"closer":   {1, 0.01, 0},
			"far":      {0, 1, 0},
			"farthest": {0, 0, 1},
		},
	}
	m := newLoadedManager(t, embedder, []string{"close", "closer", "far", "farthest"})

	r, err := m.Retriever(Options{K: 2, SearchType: SearchSimilarity})
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	docs, err := r.Retrieve(ctx, "query")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Retrieve() returned %d docs, want 2", len(docs))
	}
	if docs[0].Text != "closer" || docs[1].Text != "close" {
		t.Errorf("Retrieve() order = [%q, %q], want [closer, close]", docs[0].Text, docs[1].Text)
	}
}

func TestRetrieveScoreThreshold(t *testing.T) {
	ctx := context.Background()
	embedder := &mapEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"query":    {1, 0, 0},
			"relevant": {1, 0, 0},
			"noise":    {0, 1, 0},
		},
	}
	m := newLoadedManager(t, embedder, []string{"relevant", "noise"})

	r, err := m.Retriever(Options{K: 5, SearchType: SearchScoreThreshold, ScoreThreshold: 0.5})
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	docs, err := r.Retrieve(ctx, "query")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "relevant" {
		t.Errorf("Retrieve() = %v, want only the relevant doc", docs)
	}
}

func TestRetrieveMMRPrefersDiversity(t *testing.T) {
	ctx := context.Background()
	// Two near-duplicates closest to the query plus one distinct doc that is
	// still relevant but orthogonal to the duplicates. Pure similarity would
	// return both duplicates; MMR should swap the second duplicate for the
	// distinct doc.
	embedder := &mapEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"query":      {1, 0, 0},
			"dup one":    {0.8, 0.6, 0},
			"dup two":    {0.8, 0.6, 0.01},
			"distinct":   {0.6, -0.8, 0},
			"irrelevant": {0, 0, 1},
		},
	}
	m := newLoadedManager(t, embedder, []string{"dup one", "dup two", "distinct", "irrelevant"})

	r, err := m.Retriever(Options{K: 2, SearchType: SearchMMR, FetchK: 4, LambdaMult: 0.5})
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	docs, err := r.Retrieve(ctx, "query")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Retrieve() returned %d docs, want 2", len(docs))
	}
	if docs[0].Text != "dup one" {
		t.Errorf("Retrieve() first doc = %q, want the most relevant doc", docs[0].Text)
	}
	got := map[string]bool{docs[0].Text: true, docs[1].Text: true}
	if !got["distinct"] {
		t.Errorf("Retrieve() = %v, expected the distinct doc to be selected", docs)
	}
	if got["dup one"] && got["dup two"] {
		t.Errorf("Retrieve() = %v, expected only one of the near-duplicates", docs)
	}
}

func TestRetrieveMMRFewerCandidatesThanK(t *testing.T) {
	ctx := context.Background()
	embedder := &mapEmbedder{dim: 3, vectors: map[string][]float32{
		"query": {1, 0, 0},
		"only":  {1, 0, 0},
	}}
	m := newLoadedManager(t, embedder, []string{"only"})

	r, err := m.Retriever(Options{K: 5, SearchType: SearchMMR, FetchK: 20, LambdaMult: 0.5})
	if err != nil {
		t.Fatalf("Retriever() error = %v", err)
	}
	docs, err := r.Retrieve(ctx, "query")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("Retrieve() returned %d docs, want 1", len(docs))
	}
}
