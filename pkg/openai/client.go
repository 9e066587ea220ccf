// Package openai is a minimal client for an OpenAI-compatible HTTP API,
// covering the two calls the pipeline needs: embeddings and JSON-mode chat
// completions. Failures surface as domain.ProviderError.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/permismed/permis-rag/engine/domain"
)

// DefaultBaseURL is the hosted OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures the client.
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration
}

// Client calls an OpenAI-compatible API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	embedModel string
	chatModel  string
	client     *http.Client
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// EmbedModel returns the embedding model identity. Records are tagged with
// it so that an ingest/query model mismatch can be audited.
func (c *Client) EmbedModel() string { return c.embedModel }

// ChatModel returns the chat model identity.
func (c *Client) ChatModel() string { return c.chatModel }

var spaceRun = regexp.MustCompile(`\s{2,}`)

// Flatten collapses newlines and whitespace runs to single spaces, keeping
// embeddings stable against formatting-only differences.
func Flatten(text string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(strings.ReplaceAll(text, "\n", " "), " "))
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. The input is flattened first.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := c.post(ctx, "/embeddings", embedRequest{
		Model: c.embedModel,
		Input: Flatten(text),
	})
	if err != nil {
		return nil, &domain.ProviderError{Op: "embed", Err: err}
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, &domain.ProviderError{Op: "embed", Err: fmt.Errorf("no embedding returned")}
	}
	return out.Data[0].Embedding, nil
}

// ChatRequest is one JSON-mode completion call.
type ChatRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatAPIRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatAPIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs a chat completion constrained to a single JSON object and
// returns the raw message content. An empty content is returned as-is; the
// caller decides how to classify it.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	apiReq := chatAPIRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	apiReq.ResponseFormat.Type = "json_object"

	body, err := c.post(ctx, "/chat/completions", apiReq)
	if err != nil {
		return "", &domain.ProviderError{Op: "chat", Err: err}
	}

	var out chatAPIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &domain.ProviderError{Op: "chat", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &domain.ProviderError{Op: "chat", Err: fmt.Errorf("no choices returned")}
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
