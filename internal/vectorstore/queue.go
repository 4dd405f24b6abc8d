package vectorstore

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"

	"pai-smart-go/internal/model"
	"pai-smart-go/pkg/log"
)

// opHeap 是一个按 (Priority, Seq) 排序的最小堆：数值越小的 Priority 先出队，
// 同优先级按入队顺序 FIFO，对应 original_source 里 OperationQueueItem.__lt__ 的排序规则。
type opHeap []*model.OperationQueueItem

func (h opHeap) Len() int { return len(h) }
func (h opHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].Seq < h[j].Seq
}
func (h opHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *opHeap) Push(x any)        { *h = append(*h, x.(*model.OperationQueueItem)) }
func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// opQueue 是一个有界的优先级队列：单个后台 worker 消费，满了就拒绝新任务而不是阻塞调用方。
type opQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	h        opHeap
	capacity int
	seq      uint64
	closed   bool
}

func newOpQueue(capacity int) *opQueue {
	q := &opQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// errQueueFull is returned by enqueue when the queue is at capacity.
type errQueueFull struct{}

func (errQueueFull) Error() string { return "operation queue is full" }

// ErrQueueFull is returned when the queue has reached its configured capacity.
var ErrQueueFull error = errQueueFull{}

func (q *opQueue) enqueue(item *model.OperationQueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errQueueFull{}
	}
	if len(q.h) >= q.capacity {
		return errQueueFull{}
	}
	q.seq++
	item.Seq = q.seq
	heap.Push(&q.h, item)
	q.cond.Signal()
	return nil
}

func (q *opQueue) dequeue() *model.OperationQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.h) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*model.OperationQueueItem)
}

func (q *opQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *opQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// runWorker drains the queue on a single goroutine until the queue is closed
// and drained. Only one worker ever runs per Store, matching the
// single-writer guarantee the spec requires to keep backend mutation order
// deterministic.
func (s *Store) runWorker(ctx context.Context) {
	defer s.workerDone.Done()
	for {
		item := s.queue.dequeue()
		if item == nil {
			return
		}
		result := s.applyQueued(ctx, item)
		atomic.AddUint64(&s.processedOps, 1)
		if item.Callback != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Errorf("operation queue callback panicked: %v", r)
					}
				}()
				item.Callback(result)
			}()
		}
	}
}

func (s *Store) applyQueued(ctx context.Context, item *model.OperationQueueItem) model.OperationResult {
	switch item.OpType {
	case model.OpInsertBatch:
		failed, err := s.upsertDirect(ctx, item.Records)
		s.recordOutcome(err)
		return model.OperationResult{Applied: len(item.Records) - len(failed), Failed: failed, Err: err}
	case model.OpDeleteBatch:
		failed, err := s.deleteDirect(ctx, item.IDs)
		s.recordOutcome(err)
		return model.OperationResult{Applied: len(item.IDs) - len(failed), Failed: failed, Err: err}
	default:
		return model.OperationResult{Err: errQueueFull{}}
	}
}
