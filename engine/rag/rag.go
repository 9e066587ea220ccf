// Package rag orchestrates retrieval-augmented answering: embed the
// question, retrieve matching regulation chunks, build the prompt, run
// generation, and parse the result into the structured answer schema.
package rag

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/permismed/permis-rag/engine/domain"
	"github.com/permismed/permis-rag/engine/semantic"
	"github.com/permismed/permis-rag/pkg/openai"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the chunks most similar to a query embedding.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, limit int) ([]semantic.Match, error)
}

// Completer runs a chat completion and returns the raw message content.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Defaults for the answering pipeline. Low temperature keeps the
// regulatory output deterministic.
const (
	DefaultTopK        = 8
	DefaultTemperature = 0.15
	DefaultMaxTokens   = 4096

	maxExcerptLen = 400
)

// Options tunes one Service. Zero values fall back to the defaults above.
type Options struct {
	TopK        int
	Temperature float32
	MaxTokens   int
	Model       string
}

// Service answers regulatory fitness questions against the ingested corpus.
type Service struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	opts      Options
	log       *slog.Logger
}

// New wires an answering service. Model is reported in response metadata
// only; the completer decides which model it actually calls.
func New(embedder Embedder, searcher Searcher, completer Completer, opts Options, log *slog.Logger) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{embedder: embedder, searcher: searcher, completer: completer, opts: opts, log: log}
}

// Ask validates the question, retrieves context, and generates a structured
// answer. A question that matches nothing in the corpus short-circuits to a
// commission referral without calling generation.
func (s *Service) Ask(ctx context.Context, question string) (*domain.Response, error) {
	if err := domain.ValidateQuestion(question); err != nil {
		return nil, err
	}
	q := strings.TrimSpace(question)

	start := time.Now()

	embedding, err := s.embedder.Embed(ctx, q)
	if err != nil {
		return nil, err
	}

	matches, err := s.searcher.Search(ctx, embedding, s.opts.TopK)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		s.log.Warn("no regulatory context found, returning referral", "question_len", len(q))
		return s.fallbackResponse(), nil
	}

	raw, err := s.completer.Complete(ctx, openai.ChatRequest{
		System:      BuildSystemPrompt(),
		User:        BuildUserPrompt(q, matches),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	answer, err := domain.ParseAnswer([]byte(raw))
	if err != nil {
		return nil, err
	}

	s.log.Info("question answered",
		"chunks", len(matches),
		"decision", answer.ProposedOrientation.Decision,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	return &domain.Response{
		Answer:  *answer,
		Sources: buildSources(matches),
		Metadata: domain.Metadata{
			ChunksUsed: len(matches),
			Model:      s.opts.Model,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// buildSources numbers matches positionally so [Source N] citations in the
// generated text line up with the returned references.
func buildSources(matches []semantic.Match) []domain.SourceReference {
	refs := make([]domain.SourceReference, len(matches))
	for i, m := range matches {
		refs[i] = domain.SourceReference{
			SourceNumber: i + 1,
			ChunkID:      m.ID,
			Excerpt:      excerpt(m.Content),
			Similarity:   math.Round(m.Similarity*10000) / 10000,
		}
	}
	return refs
}

// excerpt flattens a chunk to a single line and caps its length.
func excerpt(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= maxExcerptLen {
		return flat
	}
	return string(runes[:maxExcerptLen]) + "…"
}

// fallbackResponse is the canned commission referral returned when the
// corpus yields no relevant context.
func (s *Service) fallbackResponse() *domain.Response {
	return &domain.Response{
		Answer: domain.Answer{
			CaseAnalysis:           "Le cas présenté n'a pas pu être rapproché des textes réglementaires disponibles.",
			RegulatoryFramework:    "Données réglementaires insuffisantes : aucun extrait pertinent de l'Arrêté du 28 mars 2022 n'a été retrouvé pour cette situation.",
			RegulatoryPoints:       []domain.RegulatoryPoint{},
			MedicalReasoning:       "En l'absence de base réglementaire identifiée, aucune orientation ne peut être proposée de façon fiable. La situation relève de la commission médicale.",
			ClarificationQuestions: []string{},
			ProposedOrientation: domain.ProposedOrientation{
				Decision:      domain.DecisionRenvoi,
				Label:         "Renvoi en commission médicale",
				Justification: "La recherche dans la base réglementaire n'a retourné aucun résultat pertinent.",
			},
			ImportantNotes: []string{
				"Vérifier que la question porte bien sur l'aptitude médicale à la conduite.",
			},
			Disclaimer: "Cet avis est généré automatiquement par une IA à partir de l'Arrêté du 28 mars 2022. Il constitue une aide à la décision et ne se substitue en aucun cas au jugement clinique du médecin agréé, à l'examen du patient, ni à l'avis de la commission médicale.",
		},
		Sources: []domain.SourceReference{},
		Metadata: domain.Metadata{
			ChunksUsed: 0,
			Model:      s.opts.Model,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	}
}
