package rag

import (
	"fmt"
	"strings"

	"pai-smart-go/internal/model"
)

// minTruncatedSnippetLen is the shortest a truncated snippet is allowed to
// be before it's dropped instead of included half-cut.
const minTruncatedSnippetLen = 200

// PackContext assembles numbered, source-labeled snippets from search
// results into a single context block, stopping once maxContextLength
// characters would be exceeded. A result that would only partially fit is
// truncated at the nearest preceding sentence boundary; if that truncation
// would leave fewer than minTruncatedSnippetLen characters, the result is
// skipped entirely rather than included as a near-empty fragment.
func PackContext(results []model.SearchResult, maxContextLength int) (string, []model.Source) {
	var b strings.Builder
	var sources []model.Source
	remaining := maxContextLength

	for i, r := range results {
		label := fmt.Sprintf("[%d] (%s) ", i+1, sourceLabel(r))
		snippet := r.Payload.Text
		budget := remaining - len(label) - 1
		if budget <= 0 {
			break
		}
		if len(snippet) > budget {
			snippet = truncateAtSentenceBoundary(snippet, budget)
			if len(snippet) < minTruncatedSnippetLen {
				continue
			}
		}

		entry := label + snippet + "\n"
		b.WriteString(entry)
		remaining -= len(entry)

		sources = append(sources, model.Source{
			ChunkID:  r.ChunkID,
			FileName: sourceLabel(r),
			Snippet:  snippet,
			Score:    r.Score,
		})
		if remaining <= 0 {
			break
		}
	}
	return b.String(), sources
}

func sourceLabel(r model.SearchResult) string {
	if name, ok := r.Payload.Metadata["source_file"].(string); ok && name != "" {
		return name
	}
	return r.Payload.SourceDocumentID
}

func truncateAtSentenceBoundary(text string, limit int) string {
	if limit <= 0 || limit >= len(text) {
		return text
	}
	cut := text[:limit]
	if idx := lastSentenceEnd(cut); idx > 0 {
		return cut[:idx+1]
	}
	return cut
}

func lastSentenceEnd(text string) int {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			return i
		}
	}
	return -1
}
