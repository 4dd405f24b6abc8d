// Package vectorstore 实现了向量存储子系统：一个带主备切换、优先级写入队列与
// 内存压力监控的 Store，以及它背后可插拔的 Backend 实现。
package vectorstore

import (
	"context"

	"pai-smart-go/internal/model"
)

// Backend 是向量存储的后端契约：Elasticsearch 实现与内存回退实现都满足它。
// Store 在两者之间透明切换，调用方永远只看到 Backend 的方法集合。
type Backend interface {
	// Name 返回后端标识，用于健康状态与告警中区分主备。
	Name() string
	// EnsureCollection 在后端尚不存在集合/索引时创建它；已存在时为空操作。
	EnsureCollection(ctx context.Context, dim int) error
	// Upsert 写入或覆盖一批记录，返回失败项而不是在第一个失败时中止整批。
	Upsert(ctx context.Context, records []model.VectorRecord) ([]model.FailedRecord, error)
	// Delete 按 chunk id 删除，对不存在的 id 是幂等的。
	Delete(ctx context.Context, ids []string) ([]model.FailedRecord, error)
	// Search 返回按 Score 降序排列的最多 topK 条结果，且分数已归一化到 [0,1]。
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchResult, error)
	// Stats 返回后端当前的数据规模，用于 /advanced/storage/stats。
	Stats(ctx context.Context) (model.BackendStats, error)
	// Health 在一次轻量探测中报告后端是否可达。
	Health(ctx context.Context) error
	// Close 释放后端持有的连接等资源。
	Close() error
}
