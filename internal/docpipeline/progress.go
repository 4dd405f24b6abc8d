package docpipeline

import (
	"sync"
	"time"

	"pai-smart-go/internal/model"
)

// ProgressTracker holds in-flight and recently-finished ingest progress
// records in memory. Entries are purged by the next Cleanup call rather than
// on a fixed per-record TTL, matching the spec's explicit resolution of the
// "how long does progress stick around" open question.
type ProgressTracker struct {
	mu      sync.RWMutex
	entries map[string]model.UploadProgress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{entries: make(map[string]model.UploadProgress)}
}

func (t *ProgressTracker) Set(p model.UploadProgress) {
	p.UpdatedAt = time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[p.DocumentID] = p
}

func (t *ProgressTracker) Get(documentID string) (model.UploadProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.entries[documentID]
	return p, ok
}

// Cleanup removes terminal-state records last updated before olderThan.
func (t *ProgressTracker) Cleanup(olderThan time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, p := range t.entries {
		terminal := p.Status == model.DocStatusCompleted || p.Status == model.DocStatusFailed || p.Status == model.DocStatusCancelled
		if terminal && p.UpdatedAt.Before(olderThan) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

func (t *ProgressTracker) update(documentID string, status model.DocumentStatus, progress int, step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.entries[documentID]
	if p.DocumentID == "" {
		p.DocumentID = documentID
		p.CreatedAt = time.Now()
	}
	p.Status = status
	p.Progress = progress
	p.CurrentStep = step
	p.UpdatedAt = time.Now()
	t.entries[documentID] = p
}

func (t *ProgressTracker) fail(documentID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.entries[documentID]
	p.Status = model.DocStatusFailed
	p.ErrorMessage = err.Error()
	p.UpdatedAt = time.Now()
	t.entries[documentID] = p
}
