// Package semantic is the sole owner of all Postgres/pgvector operations:
// the regulations table, its similarity search function, and the record
// lifecycle (insert, bulk delete). Ranking happens in the database; callers
// get results in descending similarity order.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/permismed/permis-rag/engine/domain"
)

// Store wraps a pgx connection pool. Safe for concurrent use: the pool is
// shared read-only after construction.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres at the given DSN.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("semantic: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("semantic: ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool wraps an existing pool, mainly for tests.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the pgvector extension, the regulations table, and
// the match_regulation search function if they do not exist. dims must match
// the embedding model's output dimension.
func (s *Store) EnsureSchema(ctx context.Context, dims int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS regulations (
			id uuid PRIMARY KEY,
			content text NOT NULL,
			metadata jsonb NOT NULL,
			embedding vector(%d) NOT NULL
		)`, dims),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION match_regulation(query_embedding vector(%d), match_count int)
		RETURNS TABLE (id uuid, content text, metadata jsonb, similarity float)
		LANGUAGE sql STABLE AS $$
			SELECT r.id, r.content, r.metadata,
			       1 - (r.embedding <=> query_embedding) AS similarity
			FROM regulations r
			ORDER BY r.embedding <=> query_embedding
			LIMIT match_count
		$$`, dims),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &domain.WriteError{Op: "ensure schema", Err: err}
		}
	}
	return nil
}

// Insert stores one regulation chunk. Failures are per-record: the caller's
// ingestion loop logs and continues.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return &domain.WriteError{Op: "encode metadata", Err: err}
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO regulations (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Content, meta, pgvector.NewVector(rec.Embedding),
	)
	if err != nil {
		return &domain.WriteError{Op: fmt.Sprintf("insert chunk %d", rec.Metadata.ChunkIndex), Err: err}
	}
	return nil
}

// Search runs the match_regulation similarity function and returns up to
// topK results, highest similarity first. An empty corpus yields an empty
// slice, not an error.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, content, metadata, similarity FROM match_regulation($1, $2)`,
		pgvector.NewVector(embedding), topK,
	)
	if err != nil {
		return nil, &domain.QueryError{Op: "match_regulation", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &meta, &m.Similarity); err != nil {
			return nil, &domain.QueryError{Op: "scan match", Err: err}
		}
		if err := json.Unmarshal(meta, &m.Metadata); err != nil {
			return nil, &domain.QueryError{Op: "decode metadata", Err: err}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.QueryError{Op: "iterate matches", Err: err}
	}
	return matches, nil
}

// ClearAll deletes every regulation record. Used by the ingestion path for a
// corpus refresh: delete-all-then-reinsert, never update in place.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM regulations`); err != nil {
		return &domain.WriteError{Op: "clear regulations", Err: err}
	}
	return nil
}
