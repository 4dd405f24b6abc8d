package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/model"
)

// fakeBackend is a minimal Backend used to drive the Store's failover state
// machine without a real Elasticsearch or in-memory implementation.
type fakeBackend struct {
	mu          sync.Mutex
	name        string
	ensureErr   error
	upsertErr   error
	searchErr   error
	searchCalls int
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) EnsureCollection(context.Context, int) error { return f.ensureErr }
func (f *fakeBackend) Upsert(context.Context, []model.VectorRecord) ([]model.FailedRecord, error) {
	return nil, f.upsertErr
}
func (f *fakeBackend) Delete(context.Context, []string) ([]model.FailedRecord, error) {
	return nil, nil
}
func (f *fakeBackend) Search(context.Context, []float32, int, map[string]string) ([]model.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	return nil, f.searchErr
}
func (f *fakeBackend) Stats(context.Context) (model.BackendStats, error) {
	return model.BackendStats{}, nil
}
func (f *fakeBackend) Health(context.Context) error { return f.ensureErr }
func (f *fakeBackend) Close() error                 { return nil }

func TestCreateCollectionPrimaryHealthyGoesReady(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)

	require.NoError(t, s.CreateCollection(context.Background(), 8))
	state, _ := s.Health(context.Background())
	assert.Equal(t, StateReady, state)
}

func TestCreateCollectionPrimaryDownFallsBackDegraded(t *testing.T) {
	primary := &fakeBackend{name: "primary", ensureErr: errors.New("unreachable")}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)

	require.NoError(t, s.CreateCollection(context.Background(), 8))
	state, score := s.Health(context.Background())
	assert.Equal(t, StateDegraded, state)
	assert.LessOrEqual(t, score, 70)
}

func TestRepeatedTransientFailuresDegradeTheStore(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)
	s.threshold = 2
	require.NoError(t, s.CreateCollection(context.Background(), 4))

	primary.searchErr = errors.New("timeout")
	_, err := s.Search(context.Background(), []float32{1, 2, 3, 4}, 5, nil)
	assert.Error(t, err)
	state, _ := s.Health(context.Background())
	assert.Equal(t, StateReady, state, "one failure should not yet degrade the store")

	_, err = s.Search(context.Background(), []float32{1, 2, 3, 4}, 5, nil)
	assert.Error(t, err)
	state, _ = s.Health(context.Background())
	assert.Equal(t, StateDegraded, state, "threshold consecutive failures should degrade the store")
}

func TestSuccessResetsTheFailureCounter(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)
	s.threshold = 2
	require.NoError(t, s.CreateCollection(context.Background(), 4))

	primary.searchErr = errors.New("timeout")
	_, _ = s.Search(context.Background(), []float32{1}, 1, nil)
	primary.searchErr = nil
	_, err := s.Search(context.Background(), []float32{1}, 1, nil)
	require.NoError(t, err)

	primary.searchErr = errors.New("timeout again")
	_, _ = s.Search(context.Background(), []float32{1}, 1, nil)
	state, _ := s.Health(context.Background())
	assert.Equal(t, StateReady, state, "a success should reset the consecutive-failure count")
}

func TestReloadIsTheOnlyPathBackToReady(t *testing.T) {
	primary := &fakeBackend{name: "primary", ensureErr: errors.New("down")}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)
	require.NoError(t, s.CreateCollection(context.Background(), 4))

	state, _ := s.Health(context.Background())
	require.Equal(t, StateDegraded, state)

	require.Error(t, s.Reload(context.Background()), "primary is still down")
	state, _ = s.Health(context.Background())
	assert.Equal(t, StateDegraded, state)

	primary.ensureErr = nil
	require.NoError(t, s.Reload(context.Background()))
	state, _ = s.Health(context.Background())
	assert.Equal(t, StateReady, state)
}

func TestQueueUpsertRunsAsynchronouslyAndInvokesCallback(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)
	require.NoError(t, s.CreateCollection(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	done := make(chan model.OperationResult, 1)
	err := s.QueueUpsert([]model.VectorRecord{{ChunkID: "a", Embedding: []float32{1}}}, model.PriorityNormal, func(r model.OperationResult) {
		done <- r
	})
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.NoError(t, result.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued upsert callback never fired")
	}
}

func TestBatchSearchPreservesInputOrder(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	fallback := &fakeBackend{name: "fallback"}
	s := New(primary, fallback)
	require.NoError(t, s.CreateCollection(context.Background(), 1))

	vectors := make([][]float32, 5)
	for i := range vectors {
		vectors[i] = []float32{float32(i)}
	}
	results, err := s.BatchSearch(context.Background(), vectors, 1, nil)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
