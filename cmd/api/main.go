// Package main implements the regulatory decision-support API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/permismed/permis-rag/engine/rag"
	"github.com/permismed/permis-rag/engine/semantic"
	"github.com/permismed/permis-rag/pkg/metrics"
	"github.com/permismed/permis-rag/pkg/mid"
	"github.com/permismed/permis-rag/pkg/openai"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	DatabaseURL string
	APIKey      string
	BaseURL     string
	EmbedModel  string
	ChatModel   string
	CORSOrigin  string
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		DatabaseURL: envOr("DATABASE_URL", "postgres://localhost:5432/permis"),
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     envOr("OPENAI_BASE_URL", openai.DefaultBaseURL),
		EmbedModel:  envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:   envOr("CHAT_MODEL", "gpt-4o-mini"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Postgres ---
	store, err := semantic.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer store.Close()

	// --- OpenAI client ---
	ai, err := openai.New(openai.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		EmbedModel: cfg.EmbedModel,
		ChatModel:  cfg.ChatModel,
	})
	if err != nil {
		return fmt.Errorf("openai client: %w", err)
	}

	// --- Build RAG service ---
	ragSvc := rag.New(ai, store, ai, rag.Options{Model: cfg.ChatModel}, logger)

	reg := metrics.New()

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())
	mux.HandleFunc("POST /rag/ask", handleAsk(ragSvc, reg, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("permis-rag-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "chat_model", cfg.ChatModel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
