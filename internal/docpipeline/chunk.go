package docpipeline

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"pai-smart-go/internal/model"
)

// Go's regexp package (RE2) has no lookahead/lookbehind, so the original's
// `(?<=[.!?])\s+(?=[A-Z])` sentence boundary is matched by hand in
// splitOnSentenceBoundary instead of translated literally. This only feeds
// the SentenceCount statistic recorded on each chunk, not the cut points
// the chunker itself picks.
const minSentenceLen = 10

// splitIntoSentences breaks text into trimmed sentences longer than
// minSentenceLen characters, mirroring _split_into_sentences.
func splitIntoSentences(text string) []string {
	raw := splitOnSentenceBoundary(text)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// splitOnSentenceBoundary splits on ".", "!", "?" followed by whitespace and
// an ASCII uppercase letter; it never splits on whitespace alone. This is a practical
// character-class stand-in for the original's lookahead/lookbehind regex.
func splitOnSentenceBoundary(text string) []string {
	var out []string
	last := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n') {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if !isUpper(runes[j]) {
			continue
		}
		out = append(out, string(runes[last:i+1]))
		last = j
	}
	out = append(out, string(runes[last:]))
	return out
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// Chunker turns normalized text into overlapping, sentence-aligned chunks.
//
// A cursor advances in strides of MaxChunkSize. At each stride end it looks
// backward up to min(100, MaxChunkSize/2) runes for a sentence-ending
// ".", "!" or "?" and cuts right after it when one is found, so chunk
// boundaries land on sentence edges instead of mid-word. The next chunk
// starts ChunkOverlap runes before the previous cut, never before the
// previous chunk's own start.
type Chunker struct {
	MaxChunkSize int
	ChunkOverlap int
}

// NewChunker builds a Chunker from document-pipeline config values, with
// floors matching the defaults in config.applyDefaults.
func NewChunker(maxChunkSize, chunkOverlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{MaxChunkSize: maxChunkSize, ChunkOverlap: chunkOverlap}
}

// Chunk splits text belonging to sourceDocumentID into model.Chunk values.
func (c *Chunker) Chunk(sourceDocumentID, text string) []model.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.MaxChunkSize {
		return []model.Chunk{c.build(sourceDocumentID, 0, string(runes), 0, n)}
	}

	lookback := c.MaxChunkSize / 2
	if lookback > 100 {
		lookback = 100
	}

	var chunks []model.Chunk
	index := 0
	start := 0
	for start < n {
		end := c.strideEnd(runes, start, lookback)
		chunkText := string(runes[start:end])
		chunks = append(chunks, c.build(sourceDocumentID, index, chunkText, start, end))
		index++

		if end >= n {
			break
		}
		next := end - c.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// strideEnd finds the cut point for the chunk starting at start: the raw
// stride end start+MaxChunkSize, pulled back to just after the nearest
// sentence-ending punctuation within lookback runes of that boundary, or
// left at the raw boundary if none is found.
func (c *Chunker) strideEnd(runes []rune, start, lookback int) int {
	n := len(runes)
	strideEnd := start + c.MaxChunkSize
	if strideEnd >= n {
		return n
	}

	floor := strideEnd - lookback
	if floor < start {
		floor = start
	}
	for i := strideEnd - 1; i >= floor; i-- {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			return i + 1
		}
	}
	return strideEnd
}

func (c *Chunker) build(sourceDocumentID string, index int, text string, startChar, endChar int) model.Chunk {
	hash := md5.Sum([]byte(text))
	chunkID := fmt.Sprintf("%s_%04d_%s", strings.ReplaceAll(sourceDocumentID, ".", "_"), index, hex.EncodeToString(hash[:])[:12])

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}

	return model.Chunk{
		ID:               chunkID,
		SourceDocumentID: sourceDocumentID,
		ChunkIndex:       index,
		Text:             text,
		StartChar:        startChar,
		EndChar:          endChar,
		ByteSize:         len(text),
		WordCount:        len(strings.Fields(text)),
		SentenceCount:    len(splitIntoSentences(text)),
		ContentPreview:   preview,
		Metadata: map[string]any{
			"chunk_type":  "text",
			"has_content": strings.TrimSpace(text) != "",
		},
	}
}
