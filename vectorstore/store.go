// Package vectorstore persists chunk embeddings and serves nearest-neighbour
// search over them. All durable pipeline state lives here, keyed by chunk ID.
package vectorstore

import "context"

// Entry is one upsert unit. ID is the deterministic chunk identifier; writing
// an ID that already exists overwrites that entry's content, metadata, and
// embedding in place.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Match is a search hit. The stored embedding is returned alongside the score
// so callers can run diversity selection over the candidate pool.
type Match struct {
	Entry
	Score float64
}

type Store interface {
	// Exists reports whether the index has been created.
	Exists(ctx context.Context) (bool, error)
	// Create builds the index for the given embedding dimension.
	Create(ctx context.Context, dimension int) error
	// Upsert writes the batch; last write wins per ID.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k entries ordered by similarity to the query
	// vector, best first.
	Search(ctx context.Context, embedding []float32, k int) ([]Match, error)
}
