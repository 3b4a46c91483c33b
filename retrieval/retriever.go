// Package retrieval answers "which chunks are relevant to this question" in
// two stages: a broad, diversity-aware vector search followed by a precise
// rerank of the surviving candidates.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/fabfab/mini-rag/embeddings"
	"github.com/fabfab/mini-rag/rerank"
	"github.com/fabfab/mini-rag/vectorstore"
)

const (
	defaultFetchK = 50
	defaultPoolK  = 10
	defaultTopN   = 3
)

// RankedChunk is a retrieved chunk ordered by its final rerank score.
type RankedChunk struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

type Options struct {
	FetchK int
	PoolK  int
	TopN   int
}

type Service struct {
	store    vectorstore.Store
	embedder embeddings.Embedder
	reranker rerank.Reranker
	logger   *log.Logger

	fetchK int
	poolK  int
	topN   int
}

func NewService(store vectorstore.Store, embedder embeddings.Embedder, reranker rerank.Reranker, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.FetchK <= 0 {
		opts.FetchK = defaultFetchK
	}
	if opts.PoolK <= 0 {
		opts.PoolK = defaultPoolK
	}
	if opts.TopN <= 0 {
		opts.TopN = defaultTopN
	}

	return &Service{
		store:    store,
		embedder: embedder,
		reranker: reranker,
		logger:   logger,
		fetchK:   opts.FetchK,
		poolK:    opts.PoolK,
		topN:     opts.TopN,
	}
}

// Retrieve returns up to topN chunks ordered best-first. An empty index is
// not an error; it yields zero chunks and the degenerate answer path.
func (s *Service) Retrieve(ctx context.Context, question string) ([]RankedChunk, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if s.store == nil {
		return nil, fmt.Errorf("vector store not configured")
	}
	if s.reranker == nil {
		return nil, fmt.Errorf("reranker not configured")
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	queryVec := vectors[0]

	matches, err := s.store.Search(ctx, queryVec, s.fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) == 0 {
		s.logger.Printf("retrieve: no candidates in index")
		return nil, nil
	}

	pool := maximalMarginalRelevance(queryVec, matches, s.poolK)

	byID := make(map[string]vectorstore.Match, len(pool))
	candidates := make([]rerank.Candidate, len(pool))
	for i, match := range pool {
		byID[match.ID] = match
		candidates[i] = rerank.Candidate{
			ID:      match.ID,
			Content: match.Content,
			Score:   match.Score,
		}
	}

	results, err := s.reranker.Rerank(ctx, question, candidates, s.topN)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}

	ranked := make([]RankedChunk, 0, len(results))
	for _, result := range results {
		match, ok := byID[result.ID]
		if !ok {
			return nil, fmt.Errorf("reranker returned unknown candidate id %s", result.ID)
		}
		ranked = append(ranked, RankedChunk{
			ID:       match.ID,
			Content:  match.Content,
			Metadata: match.Metadata,
			Score:    result.Score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}

	return ranked, nil
}
