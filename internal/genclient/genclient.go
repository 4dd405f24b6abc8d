// Package genclient talks to an externally hosted chat-completion model over
// an OpenAI-compatible streaming HTTP API. Adapted from pkg/llm/client.go,
// with the websocket-specific MessageWriter replaced by a plain channel so
// the generator has no knowledge of how its caller transports tokens.
package genclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pai-smart-go/internal/apperr"
)

// Message is one turn in a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams carries optional sampling overrides; nil fields fall back
// to the backing model's own defaults.
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Chunk is one unit delivered over a Stream channel: either a content delta
// or a terminal error, never both.
type Chunk struct {
	Content string
	Err     error
}

// Generator is the abstract contract the RAG pipeline depends on. The
// concrete model behind it is out of scope.
type Generator interface {
	Generate(ctx context.Context, messages []Message, params *GenerationParams) (string, error)
	Stream(ctx context.Context, messages []Message, params *GenerationParams) (<-chan Chunk, error)
	Health(ctx context.Context) error
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Generator against an OpenAI-compatible /chat/completions endpoint.
func New(cfg Config) Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponseChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *client) buildRequest(ctx context.Context, messages []Message, params *GenerationParams, stream bool) (*http.Request, error) {
	reqBody := chatRequest{Model: c.cfg.Model, Messages: messages, Stream: stream}
	if params != nil {
		reqBody.Temperature = params.Temperature
		reqBody.TopP = params.TopP
		reqBody.MaxTokens = params.MaxTokens
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Internal("failed to marshal chat request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Internal("failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	return req, nil
}

// Generate runs a streaming call through Stream and returns the concatenated
// answer once the stream ends.
func (c *client) Generate(ctx context.Context, messages []Message, params *GenerationParams) (string, error) {
	ch, err := c.Stream(ctx, messages, params)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		b.WriteString(chunk.Content)
	}
	return b.String(), nil
}

// Stream starts a streaming chat completion and returns a channel of content
// deltas. The channel is closed when the model sends its "[DONE]" sentinel,
// the context is cancelled, or the connection fails.
func (c *client) Stream(ctx context.Context, messages []Message, params *GenerationParams) (<-chan Chunk, error) {
	req, err := c.buildRequest(ctx, messages, params, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			out := make(chan Chunk)
			close(out)
			return out, nil
		}
		return nil, apperr.Transient("chat completion request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperr.Transient(fmt.Sprintf("chat completion service returned status %d", resp.StatusCode), nil)
	}

	out := make(chan Chunk)
	go func() {
		defer resp.Body.Close()
		defer close(out)

		reader := bufio.NewReader(resp.Body)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line, err := reader.ReadString('\n')
			if err != nil {
				if err.Error() != "EOF" {
					out <- Chunk{Err: apperr.Transient("chat stream read failed", err)}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var parsed chatResponseChunk
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				continue
			}
			for _, choice := range parsed.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- Chunk{Content: choice.Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *client) Health(ctx context.Context) error {
	_, err := c.Generate(ctx, []Message{{Role: "user", Content: "ping"}}, &GenerationParams{})
	return err
}
