package ingestion

import (
	"context"
	"fmt"
	"log"

	"github.com/fabfab/mini-rag/embeddings"
	"github.com/fabfab/mini-rag/vectorstore"
)

// Service chunks documents, assigns stable chunk IDs, embeds the content, and
// upserts the batch into the vector store.
type Service struct {
	store     vectorstore.Store
	embedder  embeddings.Embedder
	splitter  *Splitter
	logger    *log.Logger
	dimension int
}

func NewService(store vectorstore.Store, embedder embeddings.Embedder, splitter *Splitter, logger *log.Logger, dimension int) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		store:     store,
		embedder:  embedder,
		splitter:  splitter,
		logger:    logger,
		dimension: dimension,
	}
}

// Chunk splits every document and stamps each chunk with its deterministic ID
// under the document_id metadata key. The ID is computed before the stamp, so
// it depends only on the chunk's content and inherited metadata.
func (s *Service) Chunk(docs []Document) []Chunk {
	chunks := make([]Chunk, 0)
	for _, doc := range docs {
		for _, text := range s.splitter.Split(doc.Content) {
			metadata := copyMetadata(doc.Metadata)
			metadata["document_id"] = ComputeID(text, doc.Metadata)
			chunks = append(chunks, Chunk{Content: text, Metadata: metadata})
		}
	}
	return chunks
}

// Ingest runs the full pipeline for a batch of documents and reports how many
// chunks were written. The batch is all-or-nothing: any embedding or store
// failure fails the whole ingestion.
func (s *Service) Ingest(ctx context.Context, docs []Document) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embedder not configured")
	}
	if s.store == nil {
		return 0, fmt.Errorf("vector store not configured")
	}

	chunks := s.Chunk(docs)
	if len(chunks) == 0 {
		s.logger.Printf("ingest: no content to index")
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: have %d chunks, %d embeddings", len(chunks), len(vectors))
	}

	entries := make([]vectorstore.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vectorstore.Entry{
			ID:        chunk.Metadata["document_id"],
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: vectors[i],
		}
	}

	exists, err := s.store.Exists(ctx)
	if err != nil {
		return 0, fmt.Errorf("check index: %w", err)
	}
	if !exists {
		dimension := s.dimension
		if dimension <= 0 {
			dimension = len(vectors[0])
		}
		s.logger.Printf("ingest: index does not exist, creating with dimension %d", dimension)
		if err := s.store.Create(ctx, dimension); err != nil {
			return 0, fmt.Errorf("create index: %w", err)
		}
	}

	if err := s.store.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	s.logger.Printf("ingest: wrote %d chunks from %d documents", len(entries), len(docs))
	return len(entries), nil
}
