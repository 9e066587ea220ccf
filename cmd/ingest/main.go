// Command ingest loads a regulation text file, cleans and chunks it, embeds
// every chunk, and stores the results in Postgres for retrieval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/permismed/permis-rag/engine/ingest"
	"github.com/permismed/permis-rag/engine/semantic"
	"github.com/permismed/permis-rag/engine/textproc"
	"github.com/permismed/permis-rag/pkg/openai"
	"github.com/permismed/permis-rag/pkg/resilience"
)

// embeddingDims matches text-embedding-3-small.
const embeddingDims = 1536

func main() {
	var (
		input     = flag.String("input", "", "regulation text file to ingest (required)")
		source    = flag.String("source", "", "source label stored with each chunk (defaults to the input file name)")
		size      = flag.Int("size", textproc.DefaultChunkSize, "chunk size in characters")
		overlap   = flag.Int("overlap", textproc.DefaultOverlap, "chunk overlap in characters")
		patterns  = flag.String("patterns", "", "YAML file with boilerplate patterns (optional)")
		clear     = flag.Bool("clear", false, "delete all existing chunks before ingesting")
		embedRate = flag.Float64("embed-rate", 5, "max embedding calls per second")
	)
	flag.Parse()

	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *source == "" {
		*source = filepath.Base(*input)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, config{
		input:     *input,
		source:    *source,
		size:      *size,
		overlap:   *overlap,
		patterns:  *patterns,
		clear:     *clear,
		embedRate: *embedRate,
	}); err != nil {
		log.Error("ingestion failed", "err", err)
		os.Exit(1)
	}
}

type config struct {
	input     string
	source    string
	size      int
	overlap   int
	patterns  string
	clear     bool
	embedRate float64
}

func run(ctx context.Context, log *slog.Logger, cfg config) error {
	raw, err := os.ReadFile(cfg.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	patterns := textproc.DefaultPatterns()
	if cfg.patterns != "" {
		patterns, err = textproc.LoadPatterns(cfg.patterns)
		if err != nil {
			return fmt.Errorf("load patterns: %w", err)
		}
	}
	cleaner, err := textproc.NewCleaner(patterns)
	if err != nil {
		return fmt.Errorf("compile patterns: %w", err)
	}

	dsn := envOr("DATABASE_URL", "postgres://localhost:5432/permis")
	store, err := semantic.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx, embeddingDims); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info("connected to Postgres")

	ai, err := openai.New(openai.Config{
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		BaseURL:    envOr("OPENAI_BASE_URL", openai.DefaultBaseURL),
		EmbedModel: envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
	})
	if err != nil {
		return fmt.Errorf("openai client: %w", err)
	}

	if cfg.clear {
		if err := store.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
		log.Info("existing chunks cleared")
	}

	pipeline := ingest.New(cleaner, ai, store, ingest.Options{
		Source:         cfg.source,
		ChunkSize:      cfg.size,
		Overlap:        cfg.overlap,
		EmbeddingModel: ai.EmbedModel(),
		Limiter:        resilience.NewLimiter(resilience.LimiterOpts{Rate: cfg.embedRate, Burst: 1}),
	}, log)

	// Cleaned copy kept next to the input so the cleaning result can be
	// reviewed after a run.
	cleaned, _ := pipeline.Prepare(string(raw))
	cleanPath := cfg.input + ".clean.txt"
	if err := os.WriteFile(cleanPath, []byte(cleaned), 0o644); err != nil {
		log.Warn("could not write cleaned copy", "path", cleanPath, "err", err)
	} else {
		log.Info("cleaned copy written", "path", cleanPath)
	}

	start := time.Now()
	report, err := pipeline.Run(ctx, string(raw))
	if err != nil {
		return err
	}

	log.Info("ingestion complete",
		"source", report.Source,
		"inserted", report.Inserted,
		"attempted", report.Attempted,
		"failed", len(report.Failures),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	for _, f := range report.Failures {
		log.Warn("chunk not ingested", "chunk", f.ChunkIndex, "err", f.Err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d chunks failed", len(report.Failures), report.Attempted)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
