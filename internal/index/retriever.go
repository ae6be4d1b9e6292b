package index

import (
	"context"
	"fmt"

	"docchat/internal/apperr"
	"docchat/internal/vectorstore"
)

// Search modes supported by the retriever.
const (
	SearchSimilarity     = "similarity"
	SearchScoreThreshold = "similarity_score_threshold"
	SearchMMR            = "mmr"
)

// Options configures a retriever. K is the number of documents returned.
// FetchK and LambdaMult apply to MMR only; ScoreThreshold applies to the
// threshold mode only.
type Options struct {
	K              int
	SearchType     string
	FetchK         int
	LambdaMult     float64
	ScoreThreshold float64
}

// Retriever embeds a query and searches the store using one of the
// configured modes.
type Retriever struct {
	store    *vectorstore.Store
	embedder Embedder
	opts     Options
}

func newRetriever(store *vectorstore.Store, embedder Embedder, opts Options) (*Retriever, error) {
	const op = "index.newRetriever"

	if opts.K <= 0 {
		return nil, apperr.Msg(op, apperr.ErrValidation, "k must be positive, got %d", opts.K)
	}
	switch opts.SearchType {
	case SearchSimilarity, SearchScoreThreshold:
	case SearchMMR:
		if opts.FetchK < opts.K {
			opts.FetchK = opts.K
		}
		if opts.LambdaMult < 0 || opts.LambdaMult > 1 {
			return nil, apperr.Msg(op, apperr.ErrValidation, "lambda_mult must be in [0,1], got %f", opts.LambdaMult)
		}
	default:
		return nil, apperr.Msg(op, apperr.ErrValidation, "unknown search type %q", opts.SearchType)
	}
	return &Retriever{store: store, embedder: embedder, opts: opts}, nil
}

// Retrieve returns the documents most relevant to query under the configured
// search mode.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]vectorstore.Document, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := vectors[0]

	switch r.opts.SearchType {
	case SearchSimilarity:
		results, err := r.store.Search(ctx, queryVec, r.opts.K)
		if err != nil {
			return nil, err
		}
		return documents(results), nil

	case SearchScoreThreshold:
		results, err := r.store.Search(ctx, queryVec, r.opts.K)
		if err != nil {
			return nil, err
		}
		var kept []vectorstore.SearchResult
		for _, res := range results {
			if res.Score >= r.opts.ScoreThreshold {
				kept = append(kept, res)
			}
		}
		return documents(kept), nil

	case SearchMMR:
		candidates, err := r.store.Search(ctx, queryVec, r.opts.FetchK)
		if err != nil {
			return nil, err
		}
		return documents(maximalMarginalRelevance(queryVec, candidates, r.opts.K, r.opts.LambdaMult)), nil
	}

	return nil, apperr.Msg("index.Retrieve", apperr.ErrValidation, "unknown search type %q", r.opts.SearchType)
}

func documents(results []vectorstore.SearchResult) []vectorstore.Document {
	docs := make([]vectorstore.Document, len(results))
	for i, res := range results {
		docs[i] = res.Document
	}
	return docs
}

// maximalMarginalRelevance greedily picks k candidates balancing relevance to
// the query against similarity to what was already picked. lambda 1 is pure
// relevance, lambda 0 is pure diversity.
func maximalMarginalRelevance(query []float32, candidates []vectorstore.SearchResult, k int, lambda float64) []vectorstore.SearchResult {
	if len(candidates) <= k {
		return candidates
	}

	selected := make([]vectorstore.SearchResult, 0, k)
	remaining := make([]vectorstore.SearchResult, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := -1e9
		for i, cand := range remaining {
			relevance := cand.Score
			maxSim := 0.0
			for _, sel := range selected {
				if sim := vectorstore.CosineSimilarity(cand.Vector, sel.Vector); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*relevance - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
