// Package embedclient talks to an externally hosted embedding model over a
// plain OpenAI-compatible HTTP API. Adapted from pkg/embedding/client.go,
// extended with Dim and Health since the service layer needs both to
// validate vectors before they reach the store and to report readiness.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pai-smart-go/internal/apperr"
)

// Embedder is the abstract contract the rest of the service depends on.
// The concrete model behind it is out of scope; this package is the only
// thing that knows it happens to be an OpenAI-compatible HTTP endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	Health(ctx context.Context) error
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

type client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds an Embedder against an OpenAI-compatible /embeddings endpoint.
func New(cfg Config) Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperr.Transient("embedding response contained no vectors", nil)
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{Model: c.cfg.Model, Input: texts, Dimensions: c.cfg.Dimensions}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Internal("failed to marshal embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Internal("failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Transient("embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Transient(fmt.Sprintf("embedding service returned status %d", resp.StatusCode), nil)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Internal("failed to decode embedding response", err)
	}

	vectors := make([][]float32, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		vectors = append(vectors, d.Embedding)
	}
	return vectors, nil
}

func (c *client) Dim() int { return c.cfg.Dimensions }

func (c *client) Health(ctx context.Context) error {
	_, err := c.Embed(ctx, "health check")
	return err
}
