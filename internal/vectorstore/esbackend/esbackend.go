// Package esbackend 把 Elasticsearch 接成 vectorstore.Backend：dense_vector 字段
// 配合 cosine 相似度做 kNN 检索，再用 BM25 对文本做 rescore，得到混合检索。
// 索引建表方式沿用了 teacher 项目里 Elasticsearch 连接建立的思路，但换成了
// chunk 形状的映射（vector 维度来自 embedding_dim 配置，而不是写死的值）。
package esbackend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/config"
	"pai-smart-go/internal/model"
)

// NewClient builds the underlying Elasticsearch client this Backend wraps.
// Adapted from pkg/es/client.go's InitES: same address/auth/TLS-skip setup,
// minus that file's own index bootstrapping, which EnsureCollection below
// does against this backend's own chunk-shaped mapping instead.
func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, apperr.Internal("failed to build elasticsearch client", err)
	}
	return client, nil
}

// Backend implements vectorstore.Backend against a single Elasticsearch
// index holding one document per chunk.
type Backend struct {
	client    *elasticsearch.Client
	indexName string
}

// New wraps an already-initialized Elasticsearch client.
func New(client *elasticsearch.Client, indexName string) *Backend {
	return &Backend{client: client, indexName: indexName}
}

func (b *Backend) Name() string { return "elasticsearch" }

type esDoc struct {
	ChunkID          string    `json:"chunk_id"`
	SourceDocumentID string    `json:"source_document_id"`
	ChunkIndex       int       `json:"chunk_index"`
	TextContent      string    `json:"text_content"`
	Vector           []float32 `json:"vector"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func (b *Backend) EnsureCollection(ctx context.Context, dim int) error {
	existsRes, err := b.client.Indices.Exists([]string{b.indexName}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperr.Transient("failed to check elasticsearch index existence", err)
	}
	defer existsRes.Body.Close()
	if existsRes.StatusCode == 200 {
		return nil
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"chunk_id":            {"type": "keyword"},
				"source_document_id":  {"type": "keyword"},
				"chunk_index":         {"type": "integer"},
				"text_content":        {"type": "text"},
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"similarity": "cosine",
					"index": true
				},
				"metadata": {"type": "object", "dynamic": true}
			}
		}
	}`, dim)

	res, err := b.client.Indices.Create(
		b.indexName,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return apperr.Transient("failed to create elasticsearch index", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperr.Transient("elasticsearch rejected index creation", fmt.Errorf("%s", res.String()))
	}
	return nil
}

func (b *Backend) Upsert(ctx context.Context, records []model.VectorRecord) ([]model.FailedRecord, error) {
	var failed []model.FailedRecord
	for _, r := range records {
		doc := esDoc{
			ChunkID:          r.ChunkID,
			SourceDocumentID: r.Payload.SourceDocumentID,
			ChunkIndex:       r.Payload.ChunkIndex,
			TextContent:      r.Payload.Text,
			Vector:           r.Embedding,
			Metadata:         r.Payload.Metadata,
		}
		body, err := json.Marshal(doc)
		if err != nil {
			failed = append(failed, model.FailedRecord{ID: r.ChunkID, Reason: err.Error()})
			continue
		}
		req := esapi.IndexRequest{
			Index:      b.indexName,
			DocumentID: r.ChunkID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, b.client)
		if err != nil {
			return failed, apperr.Transient("elasticsearch index request failed", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			failed = append(failed, model.FailedRecord{ID: r.ChunkID, Reason: res.String()})
		}
	}
	return failed, nil
}

func (b *Backend) Delete(ctx context.Context, ids []string) ([]model.FailedRecord, error) {
	var failed []model.FailedRecord
	for _, id := range ids {
		req := esapi.DeleteRequest{
			Index:      b.indexName,
			DocumentID: id,
			Refresh:    "true",
		}
		res, err := req.Do(ctx, b.client)
		if err != nil {
			return failed, apperr.Transient("elasticsearch delete request failed", err)
		}
		defer res.Body.Close()
		if res.IsError() && res.StatusCode != 404 {
			failed = append(failed, model.FailedRecord{ID: id, Reason: res.String()})
		}
	}
	return failed, nil
}

func (b *Backend) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	candidates := topK * 10

	var filterClauses []map[string]any
	for k, v := range filter {
		filterClauses = append(filterClauses, map[string]any{
			"term": map[string]any{fmt.Sprintf("metadata.%s", k): v},
		})
	}

	query := map[string]any{
		"size": topK,
		"knn": map[string]any{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": candidates,
		},
		"rescore": map[string]any{
			"window_size": candidates,
			"query": map[string]any{
				"rescore_query": map[string]any{
					"match": map[string]any{"text_content": textFromFilter(filter)},
				},
				"query_weight":       0.2,
				"rescore_query_weight": 1.0,
			},
		},
	}
	if len(filterClauses) > 0 {
		query["knn"].(map[string]any)["filter"] = map[string]any{"bool": map[string]any{"filter": filterClauses}}
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, apperr.Internal("failed to marshal elasticsearch query", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.indexName),
		b.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, apperr.Transient("elasticsearch search request failed", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, apperr.Transient("elasticsearch rejected search request", fmt.Errorf("%s", res.String()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source esDoc   `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperr.Internal("failed to decode elasticsearch response", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		results = append(results, model.SearchResult{
			ChunkID: h.Source.ChunkID,
			Score:   normalizeScore(h.Score),
			Payload: model.Chunk{
				ID:               h.Source.ChunkID,
				SourceDocumentID: h.Source.SourceDocumentID,
				ChunkIndex:       h.Source.ChunkIndex,
				Text:             h.Source.TextContent,
				Metadata:         h.Source.Metadata,
			},
		})
	}
	return results, nil
}

// normalizeScore clamps Elasticsearch's combined kNN+rescore score into
// [0,1]. The raw kNN component for a cosine-similarity dense_vector field is
// already (1+cos)/2 in [0,1]; the BM25 rescore on top of it can push the
// combined score above 1, so we clamp rather than re-derive cosine.
func normalizeScore(raw float64) float64 {
	if raw > 1 {
		return 1
	}
	if raw < 0 {
		return 0
	}
	return raw
}

func textFromFilter(filter map[string]string) string {
	if q, ok := filter["query_text"]; ok {
		return q
	}
	return ""
}

func (b *Backend) Stats(ctx context.Context) (model.BackendStats, error) {
	res, err := b.client.Count(
		b.client.Count.WithContext(ctx),
		b.client.Count.WithIndex(b.indexName),
	)
	if err != nil {
		return model.BackendStats{}, apperr.Transient("elasticsearch count request failed", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return model.BackendStats{}, apperr.Transient("elasticsearch rejected count request", fmt.Errorf("%s", res.String()))
	}
	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return model.BackendStats{}, apperr.Internal("failed to decode elasticsearch count response", err)
	}
	return model.BackendStats{VectorCount: parsed.Count}, nil
}

func (b *Backend) Health(ctx context.Context) error {
	res, err := b.client.Ping(b.client.Ping.WithContext(ctx))
	if err != nil {
		return apperr.Transient("elasticsearch ping failed", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperr.Transient("elasticsearch ping returned an error status", fmt.Errorf("%s", res.String()))
	}
	return nil
}

func (b *Backend) Close() error { return nil }
