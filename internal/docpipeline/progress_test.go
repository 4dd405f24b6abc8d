package docpipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/model"
)

func TestProgressTrackerUpdateThenGet(t *testing.T) {
	tr := NewProgressTracker()
	tr.update("doc-1", model.DocStatusEmbedding, 40, "embedding")

	p, ok := tr.Get("doc-1")
	require.True(t, ok)
	assert.Equal(t, model.DocStatusEmbedding, p.Status)
	assert.Equal(t, 40, p.Progress)
	assert.Equal(t, "embedding", p.CurrentStep)
}

func TestProgressTrackerFailSetsErrorMessage(t *testing.T) {
	tr := NewProgressTracker()
	tr.update("doc-1", model.DocStatusEmbedding, 20, "parsing")
	tr.fail("doc-1", errors.New("tika unavailable"))

	p, ok := tr.Get("doc-1")
	require.True(t, ok)
	assert.Equal(t, model.DocStatusFailed, p.Status)
	assert.Equal(t, "tika unavailable", p.ErrorMessage)
}

func TestProgressTrackerCleanupOnlyRemovesOldTerminalRecords(t *testing.T) {
	tr := NewProgressTracker()
	tr.update("done-old", model.DocStatusCompleted, 100, "done")
	tr.update("active", model.DocStatusEmbedding, 50, "embedding")

	cutoff := time.Now().Add(time.Hour)
	removed := tr.Cleanup(cutoff)
	assert.Equal(t, 1, removed)

	_, ok := tr.Get("done-old")
	assert.False(t, ok)
	_, ok = tr.Get("active")
	assert.True(t, ok, "non-terminal records should survive cleanup regardless of age")
}

func TestProgressTrackerCleanupSparesRecentTerminalRecords(t *testing.T) {
	tr := NewProgressTracker()
	tr.update("done-recent", model.DocStatusCompleted, 100, "done")

	removed := tr.Cleanup(time.Now().Add(-time.Hour))
	assert.Equal(t, 0, removed)
	_, ok := tr.Get("done-recent")
	assert.True(t, ok)
}
