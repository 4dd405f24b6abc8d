package docpipeline

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"pai-smart-go/internal/apperr"
)

// ParseResult is the normalized plain text plus the structural flags the
// spec wants recorded on DocumentMetadata (has_tables/has_images/has_links).
type ParseResult struct {
	Text      string
	HasTables bool
	HasImages bool
	HasLinks  bool
}

// ParseByExtension dispatches to the format-specific normalizer. Unknown
// extensions fall back to treating the content as plain text, matching the
// original processor's behavior of never hard-failing on an unrecognized
// but readable file.
func ParseByExtension(ext string, raw []byte) (ParseResult, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "csv":
		return parseCSV(raw)
	case "md", "markdown":
		return parseMarkdown(raw)
	default:
		return ParseResult{Text: cleanAndNormalize(string(raw))}, nil
	}
}

var linkPattern = regexp.MustCompile(`https?://\S+`)

func cleanAndNormalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = strings.Join(lines, "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

// parseCSV renders each row as a sentence-like line so the chunker's
// sentence splitter treats rows as natural units: "col1: val1. col2: val2."
func parseCSV(raw []byte) (ParseResult, error) {
	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return ParseResult{}, apperr.Validation(fmt.Sprintf("invalid csv content: %v", err))
	}
	if len(records) == 0 {
		return ParseResult{}, nil
	}

	header := records[0]
	var b strings.Builder
	for _, row := range records[1:] {
		for i, val := range row {
			col := fmt.Sprintf("column_%d", i)
			if i < len(header) {
				col = header[i]
			}
			b.WriteString(col)
			b.WriteString(": ")
			b.WriteString(val)
			b.WriteString(". ")
		}
		b.WriteString("\n")
	}
	return ParseResult{Text: cleanAndNormalize(b.String()), HasTables: true}, nil
}

var (
	mdHeaderPattern = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	mdTableRowPattern = regexp.MustCompile(`(?m)^\|(.+)\|\s*$`)
	mdTableSepPattern = regexp.MustCompile(`^\s*\|?[\s:|-]+\|?\s*$`)
	mdListItemPattern = regexp.MustCompile(`(?m)^\s*[-*+]\s+(.+)$`)
	mdImagePattern    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
)

// parseMarkdown converts headers, tables and lists into plain sentences so
// downstream chunking sees natural-language text rather than markup.
// Tables are flattened row-wise with the header repeated ahead of each data
// row, so every row reads as a self-contained sentence.
func parseMarkdown(raw []byte) (ParseResult, error) {
	text := string(raw)
	hasImages := mdImagePattern.MatchString(text)
	hasLinks := linkPattern.MatchString(text)

	text = mdImagePattern.ReplaceAllString(text, "")
	text = mdHeaderPattern.ReplaceAllString(text, "$1.")
	text = mdListItemPattern.ReplaceAllString(text, "$1.")

	hasTables, text := flattenMarkdownTables(text)
	return ParseResult{Text: cleanAndNormalize(text), HasTables: hasTables, HasImages: hasImages, HasLinks: hasLinks}, nil
}

func flattenMarkdownTables(text string) (bool, string) {
	lines := strings.Split(text, "\n")
	var out []string
	found := false
	var header []string

	i := 0
	for i < len(lines) {
		line := lines[i]
		if mdTableRowPattern.MatchString(line) {
			header = splitTableRow(line)
			if i+1 < len(lines) && mdTableSepPattern.MatchString(lines[i+1]) {
				found = true
				i += 2
				for i < len(lines) && mdTableRowPattern.MatchString(lines[i]) {
					cells := splitTableRow(lines[i])
					out = append(out, flattenRow(header, cells))
					i++
				}
				continue
			}
		}
		out = append(out, line)
		i++
	}
	return found, strings.Join(out, "\n")
}

func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func flattenRow(header, cells []string) string {
	var b strings.Builder
	for i, val := range cells {
		col := fmt.Sprintf("column_%d", i)
		if i < len(header) {
			col = header[i]
		}
		b.WriteString(col)
		b.WriteString(": ")
		b.WriteString(val)
		b.WriteString(". ")
	}
	return b.String()
}
