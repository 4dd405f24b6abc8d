package vectorstore

import (
	"context"
	"sync"
	"time"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/config"
	"pai-smart-go/internal/model"
	"pai-smart-go/pkg/log"
)

// State is the health state of the Store's active backend, mirroring the
// Absent/Ready/Degraded lifecycle in the original vector_store service.
type State string

const (
	StateAbsent   State = "absent"
	StateReady    State = "ready"
	StateDegraded State = "degraded"
)

// Store is the single entry point business code talks to for all vector
// operations. It owns a primary backend (normally Elasticsearch) and a
// fallback backend (in-memory), transparently switching to the fallback
// after a run of consecutive transient failures and switching back only on
// an explicit Reload.
type Store struct {
	mu        sync.RWMutex
	primary   Backend
	fallback  Backend
	active    Backend
	state     State
	dim       int
	failures  int
	threshold int

	queue        *opQueue
	workerDone   sync.WaitGroup
	processedOps uint64

	alertMu   sync.Mutex
	alertCbs  []func(model.PerformanceAlert)

	monitor *memoryMonitor
}

// New creates a Store in the Absent state; CreateCollection must be called
// before any Upsert/Search will succeed.
func New(primary, fallback Backend) *Store {
	cfg := config.Conf.VectorStore
	threshold := cfg.ConsecutiveFailureThreshold
	if threshold <= 0 {
		threshold = 3
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	s := &Store{
		primary:   primary,
		fallback:  fallback,
		state:     StateAbsent,
		threshold: threshold,
		queue:     newOpQueue(capacity),
	}
	return s
}

// Start launches the background queue worker and the memory monitor.
func (s *Store) Start(ctx context.Context) {
	s.workerDone.Add(1)
	go s.runWorker(ctx)
	s.monitor = newMemoryMonitor(s)
	s.monitor.start(ctx)
}

// Shutdown stops the memory monitor, closes the queue to new work, and waits
// until the worker has applied every item still queued or ctx is done.
func (s *Store) Shutdown(ctx context.Context) error {
	if s.monitor != nil {
		s.monitor.stop()
	}
	s.queue.close()
	done := make(chan struct{})
	go func() {
		s.workerDone.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateCollection initializes the active backend for the given embedding
// dimension and transitions Absent -> Ready.
func (s *Store) CreateCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.primary.EnsureCollection(ctx, dim); err != nil {
		log.Errorf("primary backend unavailable at startup, falling back to memory: %v", err)
		if ferr := s.fallback.EnsureCollection(ctx, dim); ferr != nil {
			return apperr.Transient("failed to initialize both primary and fallback backends", ferr)
		}
		s.active = s.fallback
		s.state = StateDegraded
		s.dim = dim
		s.emitAlert(model.PerformanceAlert{
			Kind:      "backend_degraded",
			Severity:  model.SeverityHigh,
			Message:   "primary vector backend unavailable at startup, using in-memory fallback",
			Timestamp: time.Now(),
		})
		return nil
	}
	s.active = s.primary
	s.state = StateReady
	s.dim = dim
	return nil
}

// Reload explicitly re-tests the primary backend and, if it now answers,
// switches the active backend back to it and resets the failure counter.
// This is the only path back from Degraded to Ready.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.primary.EnsureCollection(ctx, s.dim); err != nil {
		return apperr.Transient("primary backend still unavailable", err)
	}
	s.active = s.primary
	s.state = StateReady
	s.failures = 0
	return nil
}

// Health reports the current state and a health score capped at 70 while
// Degraded, per the spec's health scoring rule.
func (s *Store) Health(ctx context.Context) (State, int) {
	s.mu.RLock()
	active := s.active
	state := s.state
	s.mu.RUnlock()

	if active == nil {
		return StateAbsent, 0
	}
	score := 100
	if err := active.Health(ctx); err != nil {
		score = 0
	}
	if state == StateDegraded && score > 70 {
		score = 70
	}
	return state, score
}

func (s *Store) currentBackend() (Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, apperr.Internal("vector store has no active backend; CreateCollection was never called", nil)
	}
	return s.active, nil
}

// recordOutcome feeds a backend call's result into the consecutive-failure
// counter and triggers the Ready -> Degraded transition once the counter
// reaches the threshold. Successes reset the counter.
func (s *Store) recordOutcome(err error) {
	if err == nil {
		s.mu.Lock()
		s.failures = 0
		s.mu.Unlock()
		return
	}
	if !apperr.Is(err, apperr.KindTransient) {
		return
	}
	s.mu.Lock()
	s.failures++
	degrade := s.failures >= s.threshold && s.state == StateReady
	if degrade {
		s.active = s.fallback
		s.state = StateDegraded
	}
	s.mu.Unlock()

	if degrade {
		log.Errorf("vector backend degraded after %d consecutive transient failures", s.threshold)
		s.emitAlert(model.PerformanceAlert{
			Kind:      "backend_degraded",
			Severity:  model.SeverityHigh,
			Message:   "primary vector backend degraded to in-memory fallback after repeated failures",
			Timestamp: time.Now(),
		})
	}
}

// AddAlertCallback registers a listener invoked whenever the store raises a
// PerformanceAlert (degraded backend, memory pressure). A full queue raises
// no alert; it only makes QueueUpsert/QueueDelete return ErrQueueFull.
func (s *Store) AddAlertCallback(cb func(model.PerformanceAlert)) {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	s.alertCbs = append(s.alertCbs, cb)
}

func (s *Store) emitAlert(alert model.PerformanceAlert) {
	s.alertMu.Lock()
	cbs := append([]func(model.PerformanceAlert){}, s.alertCbs...)
	s.alertMu.Unlock()
	for _, cb := range cbs {
		cb(alert)
	}
}

func (s *Store) upsertDirect(ctx context.Context, records []model.VectorRecord) ([]model.FailedRecord, error) {
	backend, err := s.currentBackend()
	if err != nil {
		return nil, err
	}
	failed, err := backend.Upsert(ctx, records)
	if err != nil {
		return failed, apperr.Transient("upsert failed", err)
	}
	return failed, nil
}

func (s *Store) deleteDirect(ctx context.Context, ids []string) ([]model.FailedRecord, error) {
	backend, err := s.currentBackend()
	if err != nil {
		return nil, err
	}
	failed, err := backend.Delete(ctx, ids)
	if err != nil {
		return failed, apperr.Transient("delete failed", err)
	}
	return failed, nil
}

// Upsert writes a batch synchronously, bypassing the queue. Used by callers
// that need to know the outcome before proceeding (e.g. document ingest).
func (s *Store) Upsert(ctx context.Context, records []model.VectorRecord) ([]model.FailedRecord, error) {
	failed, err := s.upsertDirect(ctx, records)
	s.recordOutcome(err)
	return failed, err
}

// Delete removes records synchronously, bypassing the queue.
func (s *Store) Delete(ctx context.Context, ids []string) ([]model.FailedRecord, error) {
	failed, err := s.deleteDirect(ctx, ids)
	s.recordOutcome(err)
	return failed, err
}

// QueueUpsert enqueues a batch insert for background processing and returns
// immediately. callback, if non-nil, runs on the worker goroutine once the
// operation completes; it must not block.
func (s *Store) QueueUpsert(records []model.VectorRecord, priority model.Priority, callback func(model.OperationResult)) error {
	return s.queue.enqueue(&model.OperationQueueItem{
		OpType:     model.OpInsertBatch,
		Records:    records,
		Priority:   priority,
		EnqueuedAt: time.Now(),
		Callback:   callback,
	})
}

// QueueDelete enqueues a batch delete for background processing.
func (s *Store) QueueDelete(ids []string, priority model.Priority, callback func(model.OperationResult)) error {
	return s.queue.enqueue(&model.OperationQueueItem{
		OpType:     model.OpDeleteBatch,
		IDs:        ids,
		Priority:   priority,
		EnqueuedAt: time.Now(),
		Callback:   callback,
	})
}

// QueueDepth reports how many operations are waiting behind the worker.
func (s *Store) QueueDepth() int { return s.queue.depth() }

// Search runs a similarity search against the active backend.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.SearchResult, error) {
	backend, err := s.currentBackend()
	if err != nil {
		return nil, err
	}
	results, err := backend.Search(ctx, vector, topK, filter)
	s.recordOutcome(wrapTransient(err))
	if err != nil {
		return nil, apperr.Transient("search failed", err)
	}
	return results, nil
}

// BatchSearch runs independent searches concurrently and preserves input
// order in the result slice.
func (s *Store) BatchSearch(ctx context.Context, vectors [][]float32, topK int, filter map[string]string) ([][]model.SearchResult, error) {
	out := make([][]model.SearchResult, len(vectors))
	errs := make([]error, len(vectors))
	var wg sync.WaitGroup
	for i, v := range vectors {
		wg.Add(1)
		go func(i int, v []float32) {
			defer wg.Done()
			res, err := s.Search(ctx, v, topK, filter)
			out[i] = res
			errs[i] = err
		}(i, v)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// Stats returns the active backend's current data volume.
func (s *Store) Stats(ctx context.Context) (model.BackendStats, error) {
	backend, err := s.currentBackend()
	if err != nil {
		return model.BackendStats{}, err
	}
	return backend.Stats(ctx)
}

func wrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Transient("backend call failed", err)
}
