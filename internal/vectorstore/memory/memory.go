// Package memory 实现了一个进程内的向量后端，作为主后端不可用时的透明回退。
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"pai-smart-go/internal/model"
)

// Backend 是一个基于线性扫描余弦相似度的向量存储，behind a RWMutex。
// 它不做任何持久化：进程重启后数据即丢失，这是规格里明确允许的非目标。
type Backend struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]model.VectorRecord
}

// New 创建一个空的内存后端。
func New() *Backend {
	return &Backend{records: make(map[string]model.VectorRecord)}
}

func (b *Backend) Name() string { return "memory" }

func (b *Backend) EnsureCollection(_ context.Context, dim int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dimension = dim
	return nil
}

func (b *Backend) Upsert(_ context.Context, records []model.VectorRecord) ([]model.FailedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var failed []model.FailedRecord
	for _, r := range records {
		if b.dimension != 0 && len(r.Embedding) != b.dimension {
			failed = append(failed, model.FailedRecord{ID: r.ChunkID, Reason: "embedding dimension mismatch"})
			continue
		}
		b.records[r.ChunkID] = r
	}
	return failed, nil
}

func (b *Backend) Delete(_ context.Context, ids []string) ([]model.FailedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.records, id)
	}
	return nil, nil
}

func (b *Backend) Search(_ context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	results := make([]model.SearchResult, 0, len(b.records))
	for _, rec := range b.records {
		if !matchesFilter(rec.Payload.Metadata, filter) {
			continue
		}
		sim := cosineSimilarity(vector, rec.Embedding)
		score := (sim + 1) / 2
		results = append(results, model.SearchResult{
			ChunkID: rec.ChunkID,
			Score:   score,
			Payload: rec.Payload,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for k, v := range filter {
		mv, ok := metadata[k]
		if !ok {
			return false
		}
		if s, ok := mv.(string); !ok || s != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (b *Backend) Stats(_ context.Context) (model.BackendStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.BackendStats{
		VectorCount: int64(len(b.records)),
		Dimension:   b.dimension,
	}, nil
}

func (b *Backend) Health(_ context.Context) error { return nil }

func (b *Backend) Close() error { return nil }
