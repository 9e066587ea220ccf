package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/permismed/permis-rag/engine/domain"
	"github.com/permismed/permis-rag/pkg/metrics"
)

// asker is the part of the answering service the handler needs.
type asker interface {
	Ask(ctx context.Context, question string) (*domain.Response, error)
}

// AskRequest is the JSON body for POST /rag/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// errorBody is the JSON error payload: a human-readable message plus a
// stable machine code.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var askDurationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleAsk(svc asker, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	requests := reg.Counter("rag_ask_requests_total", "Questions received.")
	fallbacks := reg.Counter("rag_ask_fallback_total", "Answers returned without regulatory context.")
	duration := reg.Histogram("rag_ask_duration_seconds", "End-to-end answering latency.", askDurationBuckets)

	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		start := time.Now()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, reg, http.StatusBadRequest, "invalid request body", "validation_error")
			return
		}

		resp, err := svc.Ask(r.Context(), req.Question)
		if err != nil {
			status, msg, code := classify(err)
			if status >= 500 {
				logger.Error("ask failed", "err", err, "code", code)
			}
			writeError(w, reg, status, msg, code)
			return
		}

		if resp.Metadata.ChunksUsed == 0 {
			fallbacks.Inc()
		}
		duration.Since(start)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// classify maps the error taxonomy onto HTTP status and a stable code.
func classify(err error) (status int, msg, code string) {
	var verr *domain.ValidationError
	var perr *domain.ProviderError
	var serr *domain.SchemaError
	var qerr *domain.QueryError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error(), "validation_error"
	case errors.As(err, &perr):
		return http.StatusBadGateway, "generation provider unavailable", "provider_error"
	case errors.As(err, &serr):
		return http.StatusBadGateway, "generation returned an invalid answer", "schema_error"
	case errors.As(err, &qerr):
		return http.StatusInternalServerError, "regulation store unavailable", "query_error"
	default:
		return http.StatusInternalServerError, "internal server error", "internal_error"
	}
}

func writeError(w http.ResponseWriter, reg *metrics.Registry, status int, msg, code string) {
	reg.Counter(metrics.WithLabels("rag_ask_errors_total", "code", code), "Failed questions by code.").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg, Code: code})
}
