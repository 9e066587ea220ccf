//go:build integration

package semantic

import (
	"context"
	"os"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() {
		s.ClearAll(context.Background())
		s.Close()
	})
	return s
}

func TestPostgres_EnsureSchemaIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.EnsureSchema(ctx, 4); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.EnsureSchema(ctx, 4); err != nil {
		t.Fatalf("EnsureSchema (idempotent): %v", err)
	}
}

func TestPostgres_InsertAndSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.EnsureSchema(ctx, 4); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	records := []Record{
		{ID: "a1111111-1111-1111-1111-111111111111", Content: "acuité visuelle minimale", Metadata: RecordMetadata{Source: "test", ChunkIndex: 0, CharCount: 24}, Embedding: []float32{1, 0, 0, 0}},
		{ID: "b2222222-2222-2222-2222-222222222222", Content: "épilepsie et conduite", Metadata: RecordMetadata{Source: "test", ChunkIndex: 1, CharCount: 21}, Embedding: []float32{0, 1, 0, 0}},
		{ID: "c3333333-3333-3333-3333-333333333333", Content: "champ visuel binoculaire", Metadata: RecordMetadata{Source: "test", ChunkIndex: 2, CharCount: 24}, Embedding: []float32{0.9, 0.1, 0, 0}},
	}
	for _, r := range records {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s: %v", r.ID, err)
		}
	}

	matches, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Content != "acuité visuelle minimale" {
		t.Errorf("top match: %q", matches[0].Content)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("results not in descending similarity order")
	}
	if matches[0].Metadata.ChunkIndex != 0 {
		t.Errorf("metadata lost: %+v", matches[0].Metadata)
	}
}

func TestPostgres_SearchEmptyCorpus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.EnsureSchema(ctx, 4); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	matches, err := s.Search(ctx, []float32{0, 0, 1, 0}, 8)
	if err != nil {
		t.Fatalf("Search on empty corpus must not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}
