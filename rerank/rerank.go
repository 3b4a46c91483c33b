// Package rerank re-scores a small candidate set against a query using a
// model trained for relevance judgment, correcting for the imprecision of
// embedding similarity.
package rerank

import (
	"context"
	"fmt"

	"github.com/fabfab/mini-rag/config"
)

// Candidate is a retrieval result offered for reranking.
type Candidate struct {
	ID      string
	Content string
	Score   float64
}

// Result maps a candidate ID to its rerank relevance score. Results are
// returned sorted by score descending and truncated to the requested topN.
type Result struct {
	ID    string
	Score float64
}

type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]Result, error)
}

func NewReranker(cfg config.Config) (Reranker, error) {
	switch cfg.Rerank.Provider {
	case config.ProviderCohere:
		if cfg.Rerank.APIKey == "" {
			return nil, fmt.Errorf("cohere provider selected but COHERE_API_KEY not set")
		}
		return NewCohereReranker(cfg.Rerank), nil
	case config.ProviderLocal:
		return LocalReranker{}, nil
	default:
		return nil, fmt.Errorf("unknown rerank provider: %s", cfg.Rerank.Provider)
	}
}

// LocalReranker keeps the incoming retrieval order and truncates. It stands in
// when no rerank service is configured.
type LocalReranker struct{}

func (LocalReranker) Rerank(_ context.Context, _ string, candidates []Candidate, topN int) ([]Result, error) {
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	results := make([]Result, 0, topN)
	for i := 0; i < topN; i++ {
		results = append(results, Result{ID: candidates[i].ID, Score: candidates[i].Score})
	}
	return results, nil
}

var _ Reranker = LocalReranker{}
