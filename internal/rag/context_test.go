package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/model"
)

func result(id, docID, text string, score float64) model.SearchResult {
	return model.SearchResult{
		ChunkID: id,
		Score:   score,
		Payload: model.Chunk{SourceDocumentID: docID, Text: text},
	}
}

func TestPackContextIncludesAllResultsWithinBudget(t *testing.T) {
	results := []model.SearchResult{
		result("c1", "doc-a", "First chunk of context text.", 0.9),
		result("c2", "doc-b", "Second chunk of context text.", 0.8),
	}
	text, sources := PackContext(results, 1000)
	assert.Contains(t, text, "First chunk of context text.")
	assert.Contains(t, text, "Second chunk of context text.")
	require.Len(t, sources, 2)
	assert.Equal(t, "doc-a", sources[0].FileName)
}

func TestPackContextUsesSourceFileMetadataWhenPresent(t *testing.T) {
	r := result("c1", "doc-a", "Some text.", 0.9)
	r.Payload.Metadata = map[string]any{"source_file": "report.pdf"}
	_, sources := PackContext([]model.SearchResult{r}, 1000)
	require.Len(t, sources, 1)
	assert.Equal(t, "report.pdf", sources[0].FileName)
}

func TestPackContextStopsOnceBudgetExhausted(t *testing.T) {
	long := strings.Repeat("Sentence number one stays here. ", 20)
	results := []model.SearchResult{
		result("c1", "doc-a", long, 0.9),
		result("c2", "doc-b", "This one should not fit at all.", 0.8),
	}
	text, sources := PackContext(results, len(long)/2)
	assert.NotContains(t, text, "should not fit at all")
	assert.LessOrEqual(t, len(sources), 1)
}

func TestPackContextDropsTooShortTruncatedSnippet(t *testing.T) {
	results := []model.SearchResult{
		result("c1", "doc-a", "Short.", 0.9),
	}
	// budget smaller than the label itself forces an immediate break, not a
	// truncation path; the floor check follows.
	text, sources := PackContext(results, 0)
	assert.Empty(t, text)
	assert.Empty(t, sources)

	// 300 chars minus the 12-char label and newline leaves a 287-char budget;
	// the 406-char text is cut back to its first sentence "Tiny." (5 chars),
	// which is under minTruncatedSnippetLen, so the result is skipped.
	long := []model.SearchResult{
		result("c1", "doc-a", "Tiny. "+strings.Repeat("x", 400), 0.9),
	}
	text, sources = PackContext(long, 300)
	assert.Empty(t, text)
	assert.Empty(t, sources)
}

func TestTruncateAtSentenceBoundaryPrefersSentenceEnd(t *testing.T) {
	text := "First sentence ends here. Second sentence continues on and on."
	got := truncateAtSentenceBoundary(text, 30)
	assert.True(t, strings.HasSuffix(got, "."))
	assert.LessOrEqual(t, len(got), 30)
}

func TestTruncateAtSentenceBoundaryFallsBackToHardCutWithoutPunctuation(t *testing.T) {
	text := "no punctuation anywhere in this run of words at all"
	got := truncateAtSentenceBoundary(text, 10)
	assert.Equal(t, text[:10], got)
}
