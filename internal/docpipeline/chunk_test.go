package docpipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerShortTextProducesSingleChunk(t *testing.T) {
	c := NewChunker(1000, 100)
	chunks := c.Chunk("doc-1", "This is a short sentence that stays under the limit.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc-1", chunks[0].SourceDocumentID)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 0, chunks[0].StartChar)
}

func TestChunkerEmptyTextProducesNoChunks(t *testing.T) {
	c := NewChunker(1000, 100)
	assert.Empty(t, c.Chunk("doc-1", ""))
}

func TestChunkerExactFitProducesSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("a", 1000)
	chunks := c.Chunk("doc-exact", text)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1000, chunks[0].EndChar)
}

func TestChunkerCutsAtSentenceBoundaryWithinLookback(t *testing.T) {
	// chunk_size=30, lookback = min(100, 15) = 15. The period sits at
	// index 25, inside the lookback window ending at the raw stride
	// boundary (index 30), so the cut lands right after it.
	text := "0123456789012345678901234.6789" + strings.Repeat("x", 50)
	c := NewChunker(30, 5)
	chunks := c.Chunk("doc-2", text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "."), "expected first chunk to end right after the sentence boundary, got %q", chunks[0].Text)
}

func TestChunkerFallsBackToRawStrideWithoutPunctuation(t *testing.T) {
	text := strings.Repeat("x", 100)
	c := NewChunker(30, 5)
	chunks := c.Chunk("doc-3", text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 30, chunks[0].EndChar)
}

func TestChunkerOverlapStartsBeforePreviousEnd(t *testing.T) {
	text := strings.Repeat("x", 200)
	c := NewChunker(50, 10)
	chunks := c.Chunk("doc-4", text)
	require.GreaterOrEqual(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndChar-c.ChunkOverlap, chunks[i].StartChar)
		assert.GreaterOrEqual(t, chunks[i].StartChar, chunks[i-1].StartChar)
	}
}

func TestChunkerIndicesAreContiguousFromZero(t *testing.T) {
	text := strings.Repeat("abcde. ", 100)
	c := NewChunker(60, 15)
	chunks := c.Chunk("doc-5", text)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestChunkerAssignsStableContentAddressedIDs(t *testing.T) {
	c := NewChunker(1000, 50)
	text := "A single deterministic sentence for hashing."
	a := c.Chunk("doc-6", text)
	b := c.Chunk("doc-6", text)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID, b[0].ID, "chunk IDs should be deterministic for identical content")
}
