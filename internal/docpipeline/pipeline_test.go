package docpipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/config"
	"pai-smart-go/internal/model"
	"pai-smart-go/internal/vectorstore"
	"pai-smart-go/internal/vectorstore/memory"
)

func init() {
	config.Conf.DocPipeline = config.DocPipelineConfig{
		ChunkSize:            500,
		ChunkOverlap:         50,
		MinChunkSize:         10,
		MaxFileSizeMB:        10,
		MaxChunksPerDocument: 0,
		SupportedFormats:     []string{"txt", "md", "csv", "pdf"},
	}
	config.Conf.Embedding = config.EmbeddingConfig{CacheSize: 16}
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(r io.Reader, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeEmbedder struct {
	dim int
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = 1
	}
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = f.Embed(ctx, texts[i])
	}
	return out, nil
}

func (f *fakeEmbedder) Dim() int { return f.dim }

func (f *fakeEmbedder) Health(ctx context.Context) error { return f.err }

type fakeRepository struct {
	mu   sync.Mutex
	docs map[string]model.DocumentMetadata
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{docs: make(map[string]model.DocumentMetadata)}
}

func (r *fakeRepository) Create(ctx context.Context, doc *model.DocumentMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeRepository) Update(ctx context.Context, doc *model.DocumentMetadata) error {
	return r.Create(ctx, doc)
}

func (r *fakeRepository) Get(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &doc, nil
}

func (r *fakeRepository) List(ctx context.Context, userID uint, limit, offset int) ([]model.DocumentMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DocumentMetadata
	for _, d := range r.docs {
		if userID == 0 || d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func newTestPipeline(t *testing.T, embedder *fakeEmbedder) (*Pipeline, *vectorstore.Store, *fakeRepository) {
	t.Helper()
	store := vectorstore.New(memory.New(), memory.New())
	require.NoError(t, store.CreateCollection(context.Background(), embedder.dim))
	repo := newFakeRepository()
	p := New(&fakeExtractor{}, embedder, store, repo)
	return p, store, repo
}

func TestIngestPlainTextSucceedsAndPersistsMetadata(t *testing.T) {
	p, _, repo := newTestPipeline(t, &fakeEmbedder{dim: 3})

	text := "Refunds are processed within thirty days. Please contact support for details."
	doc, err := p.Ingest(context.Background(), "doc-1", "policy.txt", []byte(text), 1, "acme", false)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, doc.Status)
	assert.Greater(t, doc.ChunkCount, 0)
	assert.Len(t, doc.ChunkIDs, doc.ChunkCount)

	stored, err := repo.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusCompleted, stored.Status)
}

func TestIngestRejectsUnsupportedFormat(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{dim: 3})

	_, err := p.Ingest(context.Background(), "doc-1", "archive.zip", []byte("data"), 1, "acme", false)
	assert.Error(t, err)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{dim: 3})

	_, err := p.Ingest(context.Background(), "doc-1", "empty.txt", []byte{}, 1, "acme", false)
	assert.Error(t, err)
}

func TestIngestRecordsFailureAndRollsBackOnEmbedError(t *testing.T) {
	p, store, repo := newTestPipeline(t, &fakeEmbedder{dim: 3, err: errors.New("embedding backend down")})

	_, err := p.Ingest(context.Background(), "doc-1", "policy.txt", []byte("Some content that should chunk fine."), 1, "acme", false)
	assert.Error(t, err)

	stored, getErr := repo.Get(context.Background(), "doc-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.DocStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.ErrorMessage)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.VectorCount)
}

func TestIngestReportsProgressThroughTerminalState(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{dim: 3})

	_, err := p.Ingest(context.Background(), "doc-2", "policy.txt", []byte("Refunds take thirty days to process fully."), 1, "acme", false)
	require.NoError(t, err)

	progress, ok := p.Progress("doc-2")
	require.True(t, ok)
	assert.Equal(t, model.DocStatusCompleted, progress.Status)
	assert.Equal(t, 100, progress.Progress)
}

func TestDeleteDocumentQueuesChunkRemovalAndDeletesMetadata(t *testing.T) {
	p, store, repo := newTestPipeline(t, &fakeEmbedder{dim: 3})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.Start(ctx)
	defer store.Shutdown(context.Background())

	_, err := p.Ingest(ctx, "doc-3", "policy.txt", []byte("Refunds take thirty days to process fully."), 1, "acme", false)
	require.NoError(t, err)

	require.NoError(t, p.DeleteDocument(ctx, "doc-3"))

	_, getErr := repo.Get(ctx, "doc-3")
	assert.Error(t, getErr)

	deadline := time.Now().Add(2 * time.Second)
	for store.QueueDepth() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, store.QueueDepth())
}

func TestCleanupProgressRemovesOldTerminalEntries(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeEmbedder{dim: 3})
	_, err := p.Ingest(context.Background(), "doc-4", "policy.txt", []byte("Refunds take thirty days to process fully."), 1, "acme", false)
	require.NoError(t, err)

	removed := p.CleanupProgress(time.Now().Add(time.Hour))
	assert.Equal(t, 1, removed)
	_, ok := p.Progress("doc-4")
	assert.False(t, ok)
}
