package retrieval

import (
	"testing"

	"github.com/fabfab/mini-rag/vectorstore"
)

func TestMMRPenalizesNearDuplicates(t *testing.T) {
	query := []float32{1, 0}
	candidates := []vectorstore.Match{
		{Entry: vectorstore.Entry{ID: "best", Embedding: []float32{0.9, 0.1}}},
		{Entry: vectorstore.Entry{ID: "duplicate", Embedding: []float32{0.9, 0.11}}},
		{Entry: vectorstore.Entry{ID: "distinct", Embedding: []float32{0.5, -0.5}}},
	}

	selected := maximalMarginalRelevance(query, candidates, 2)
	if len(selected) != 2 {
		t.Fatalf("expected two selections, got %d", len(selected))
	}
	if selected[0].ID != "best" {
		t.Fatalf("expected the most relevant candidate first, got %s", selected[0].ID)
	}
	if selected[1].ID != "distinct" {
		t.Fatalf("expected the near-duplicate to be skipped, got %s", selected[1].ID)
	}
}

func TestMMRCapsAtPoolSize(t *testing.T) {
	query := []float32{1, 0}
	candidates := []vectorstore.Match{
		{Entry: vectorstore.Entry{ID: "a", Embedding: []float32{1, 0}}},
		{Entry: vectorstore.Entry{ID: "b", Embedding: []float32{0, 1}}},
	}

	if got := maximalMarginalRelevance(query, candidates, 5); len(got) != 2 {
		t.Fatalf("expected selection capped at candidate count, got %d", len(got))
	}
	if got := maximalMarginalRelevance(query, candidates, 0); got != nil {
		t.Fatalf("expected no selection for k=0, got %d", len(got))
	}
}

func TestMMREmptyCandidates(t *testing.T) {
	if got := maximalMarginalRelevance([]float32{1}, nil, 3); got != nil {
		t.Fatalf("expected nil for empty pool, got %v", got)
	}
}
