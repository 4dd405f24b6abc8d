// Package rag orchestrates retrieval, prompt assembly, generation and
// response validation. The overall shape (search -> build context -> build
// prompt -> stream from the generator -> validate) is grounded on
// internal/service/chat_service.go's StreamResponse, generalized away from
// its websocket-specific interceptor into a typed event channel any service
// transport (SSE, websocket, plain request/response) can consume.
package rag

import (
	"context"
	"strings"
	"time"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/config"
	"pai-smart-go/internal/embedclient"
	"pai-smart-go/internal/genclient"
	"pai-smart-go/internal/model"
	"pai-smart-go/internal/vectorstore"
)

// Pipeline answers RAGQuery requests by retrieving context, prompting a
// generator, and validating the result before it reaches a caller.
type Pipeline struct {
	embedder embedclient.Embedder
	store    *vectorstore.Store
	gen      genclient.Generator
	prompt   *PromptEngine
}

func New(embedder embedclient.Embedder, store *vectorstore.Store, gen genclient.Generator) *Pipeline {
	return &Pipeline{embedder: embedder, store: store, gen: gen, prompt: NewPromptEngine()}
}

// fillDefaults applies RAG config defaults to unset query fields.
func fillDefaults(q *model.RAGQuery) {
	cfg := config.Conf.RAG
	if q.TopK <= 0 {
		q.TopK = cfg.TopKDefault
	}
	if q.ScoreThreshold <= 0 {
		q.ScoreThreshold = cfg.ScoreThresholdDefault
	}
	if q.MaxContextLength <= 0 {
		q.MaxContextLength = cfg.MaxContextLengthDefault
	}
	if q.SafetyLevel == "" {
		q.SafetyLevel = model.SafetyLevel(cfg.DefaultSafetyLevel)
	}
	if q.ResponseFormat == "" {
		q.ResponseFormat = model.FormatText
	}
}

func (p *Pipeline) retrieve(ctx context.Context, q model.RAGQuery) ([]model.SearchResult, error) {
	vector, err := p.embedder.Embed(ctx, q.QueryText)
	if err != nil {
		return nil, apperr.Transient("failed to embed query", err)
	}
	results, err := p.store.Search(ctx, vector, q.TopK, nil)
	if err != nil {
		return nil, err
	}
	filtered := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= q.ScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Answer runs the full pipeline and returns a single, complete response.
func (p *Pipeline) Answer(ctx context.Context, q model.RAGQuery) (model.RAGResponse, error) {
	start := time.Now()
	fillDefaults(&q)

	results, err := p.retrieve(ctx, q)
	if err != nil {
		return model.RAGResponse{}, err
	}

	qtype := q.QueryType
	if qtype == "" {
		qtype = ClassifyQueryType(q.QueryText)
	}

	if len(results) == 0 {
		return model.RAGResponse{
			Answer:           "I don't have enough information in the indexed documents to answer that.",
			ResponseTimeMs:   time.Since(start).Milliseconds(),
			ValidationStatus: model.ValidationValid,
			SafetyScore:      1.0,
		}, nil
	}

	contextText, sources := PackContext(results, q.MaxContextLength)
	prompt := p.prompt.BuildPrompt(q, qtype, contextText)

	answer, err := p.gen.Generate(ctx, []genclient.Message{{Role: "user", Content: prompt}}, generationParams(q))
	if err != nil {
		return model.RAGResponse{}, apperr.Transient("generation failed", err)
	}

	status, safety := Validate(answer, contextText)
	resp := model.RAGResponse{
		Answer:           answer,
		ResponseTimeMs:   time.Since(start).Milliseconds(),
		TokensUsed:       estimateTokens(prompt) + estimateTokens(answer),
		ValidationStatus: status,
		SafetyScore:      safety,
	}
	if q.IncludeSources {
		resp.Sources = sources
	}
	return resp, nil
}

// Stream runs the full pipeline and emits StreamEvents in strict order:
// zero or one "sources" event, then any number of "content" events, then
// exactly one terminal "end" or "error" event. The context governs
// cancellation: when ctx is cancelled mid-stream (e.g. the client
// disconnected), Stream stops forwarding content and emits no further
// events.
func (p *Pipeline) Stream(ctx context.Context, q model.RAGQuery) (<-chan model.StreamEvent, error) {
	fillDefaults(&q)

	results, err := p.retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make(chan model.StreamEvent)
	go func() {
		defer close(out)

		if len(results) == 0 {
			emit(ctx, out, model.StreamEvent{Type: model.EventContent, Payload: "I don't have enough information in the indexed documents to answer that."})
			emit(ctx, out, model.StreamEvent{Type: model.EventEnd, Payload: nil})
			return
		}

		qtype := q.QueryType
		if qtype == "" {
			qtype = ClassifyQueryType(q.QueryText)
		}
		contextText, sources := PackContext(results, q.MaxContextLength)
		if q.IncludeSources {
			if !emit(ctx, out, model.StreamEvent{Type: model.EventSources, Payload: sources}) {
				return
			}
		}

		prompt := p.prompt.BuildPrompt(q, qtype, contextText)
		chunks, err := p.gen.Stream(ctx, []genclient.Message{{Role: "user", Content: prompt}}, generationParams(q))
		if err != nil {
			emit(ctx, out, model.StreamEvent{Type: model.EventError, Payload: err.Error()})
			return
		}

		var full strings.Builder
		for chunk := range chunks {
			if chunk.Err != nil {
				emit(ctx, out, model.StreamEvent{Type: model.EventError, Payload: chunk.Err.Error()})
				return
			}
			full.WriteString(chunk.Content)
			if !emit(ctx, out, model.StreamEvent{Type: model.EventContent, Payload: chunk.Content}) {
				return
			}
		}

		status, safety := Validate(full.String(), contextText)
		emit(ctx, out, model.StreamEvent{Type: model.EventEnd, Payload: map[string]any{
			"validationStatus": status,
			"safetyScore":       safety,
		}})
	}()
	return out, nil
}

// emit sends an event unless the context has already been cancelled; it
// reports whether the send happened so callers can stop producing further
// events once the consumer (or its connection) has gone away.
func emit(ctx context.Context, out chan<- model.StreamEvent, ev model.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func generationParams(q model.RAGQuery) *genclient.GenerationParams {
	var p genclient.GenerationParams
	if q.Temperature != 0 {
		t := q.Temperature
		p.Temperature = &t
	}
	if q.MaxTokens != 0 {
		m := q.MaxTokens
		p.MaxTokens = &m
	}
	return &p
}

// estimateTokens approximates token count at ~4 characters per token, a
// common rough heuristic when the actual tokenizer isn't available.
func estimateTokens(s string) int {
	return len(s) / 4
}
