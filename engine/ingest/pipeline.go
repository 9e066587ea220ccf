// Package ingest turns raw regulation text into embedded chunks persisted
// in the vector store: clean, chunk, embed, insert. A run replaces the
// previous corpus only when the caller clears it first; by default new
// records are appended.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/permismed/permis-rag/engine/semantic"
	"github.com/permismed/permis-rag/engine/textproc"
	"github.com/permismed/permis-rag/pkg/fn"
	"github.com/permismed/permis-rag/pkg/resilience"
)

// Embedder turns chunk text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Inserter persists one embedded chunk.
type Inserter interface {
	Insert(ctx context.Context, rec semantic.Record) error
}

// Failure records one chunk that could not be embedded or persisted.
// The run continues past failures; the report carries them for review.
type Failure struct {
	ChunkIndex int
	Err        error
}

// Report summarizes one ingestion run.
type Report struct {
	Source    string
	Attempted int
	Inserted  int
	Failures  []Failure
}

// Options tunes one ingestion run. Zero chunking values fall back to the
// textproc defaults; a nil Limiter disables embedding throttling.
type Options struct {
	Source         string
	ChunkSize      int
	Overlap        int
	EmbeddingModel string
	Limiter        *resilience.Limiter
}

// Pipeline ingests regulation documents into the vector store.
type Pipeline struct {
	cleaner *textproc.Cleaner
	store   Inserter
	opts    Options
	log     *slog.Logger

	embed fn.Stage[string, []float32]
}

// New wires an ingestion pipeline.
func New(cleaner *textproc.Cleaner, embedder Embedder, store Inserter, opts Options, log *slog.Logger) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = textproc.DefaultChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = textproc.DefaultOverlap
	}
	if log == nil {
		log = slog.Default()
	}

	embed := fn.TracedStage("ingest.embed", func(ctx context.Context, text string) fn.Result[[]float32] {
		return fn.FromPair(embedder.Embed(ctx, text))
	})
	if opts.Limiter != nil {
		embed = resilience.LimiterStageWait(opts.Limiter, embed)
	}

	return &Pipeline{
		cleaner: cleaner,
		store:   store,
		opts:    opts,
		log:     log,
		embed:   embed,
	}
}

// ChunkID derives a stable identifier from the document source and chunk
// position, so re-ingesting the same document yields the same IDs.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s-%d", source, index)).String()
}

// Prepare cleans the raw document and splits it into chunks without
// touching the embedding provider or the store.
func (p *Pipeline) Prepare(raw string) (string, []textproc.Chunk) {
	cleaned := p.cleaner.Clean(raw)
	return cleaned, textproc.ChunkText(cleaned, p.opts.ChunkSize, p.opts.Overlap)
}

// Run ingests one raw document. Chunks are embedded and inserted one at a
// time, in order; a failing chunk is recorded and skipped.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Report, error) {
	cleaned, chunks := p.Prepare(raw)
	report := &Report{Source: p.opts.Source, Attempted: len(chunks)}

	p.log.Info("document prepared",
		"source", p.opts.Source,
		"raw_chars", len([]rune(raw)),
		"clean_chars", len([]rune(cleaned)),
		"chunks", len(chunks),
	)

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		embedding, err := p.embed(ctx, chunk.Text).Unwrap()
		if err != nil {
			p.log.Error("chunk embedding failed", "chunk", chunk.Index, "error", err)
			report.Failures = append(report.Failures, Failure{ChunkIndex: chunk.Index, Err: err})
			continue
		}

		rec := semantic.Record{
			ID:      ChunkID(p.opts.Source, chunk.Index),
			Content: chunk.Text,
			Metadata: semantic.RecordMetadata{
				Source:         p.opts.Source,
				ChunkIndex:     chunk.Index,
				CharCount:      chunk.CharCount,
				EmbeddingModel: p.opts.EmbeddingModel,
			},
			Embedding: embedding,
		}
		if err := p.store.Insert(ctx, rec); err != nil {
			p.log.Error("chunk insert failed", "chunk", chunk.Index, "error", err)
			report.Failures = append(report.Failures, Failure{ChunkIndex: chunk.Index, Err: err})
			continue
		}
		report.Inserted++
	}

	p.log.Info("ingestion finished",
		"source", p.opts.Source,
		"inserted", report.Inserted,
		"failed", len(report.Failures),
	)
	return report, nil
}
