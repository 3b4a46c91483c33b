package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps chunks in a pgvector-backed table. The chunk ID is the
// primary key, which is what makes re-ingestion an overwrite instead of a
// duplicate row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Exists(ctx context.Context) (bool, error) {
	if s.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var regclass *string
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass('rag_chunks')::text").Scan(&regclass); err != nil {
		return false, fmt.Errorf("check rag_chunks relation: %w", err)
	}
	return regclass != nil, nil
}

func (s *PostgresStore) Create(ctx context.Context, dimension int) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_chunks (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entries []Entry) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, entry := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rag_chunks (id, content, metadata, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding,
			    updated_at = NOW()
		`, entry.ID, entry.Content, entry.Metadata, pgvector.NewVector(entry.Embedding)); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return nil
}

func (s *PostgresStore) Search(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if k <= 0 {
		k = 10
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// Widen the ivfflat probe count with the candidate pool so broad fetches
	// do not silently miss lists.
	probes := k
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, content, metadata, embedding, (embedding <-> $1::vector) AS distance
		FROM rag_chunks
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var (
			item     Match
			vec      pgvector.Vector
			distance float64
		)
		if scanErr := rows.Scan(&item.ID, &item.Content, &item.Metadata, &vec, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		item.Embedding = vec.Slice()
		item.Score = 1 / (1 + distance)
		matches = append(matches, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return matches, nil
}

var _ Store = (*PostgresStore)(nil)
