package docpipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVFlattensRowsIntoSentenceLikeLines(t *testing.T) {
	raw := "name,age\nAlice,30\nBob,42\n"
	result, err := ParseByExtension("csv", []byte(raw))
	require.NoError(t, err)
	assert.True(t, result.HasTables)
	assert.Contains(t, result.Text, "name: Alice.")
	assert.Contains(t, result.Text, "age: 30.")
	assert.Contains(t, result.Text, "name: Bob.")
}

func TestParseCSVEmptyInputProducesEmptyResult(t *testing.T) {
	result, err := ParseByExtension("csv", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, result.Text)
	assert.False(t, result.HasTables)
}

func TestParseCSVRejectsMalformedInput(t *testing.T) {
	_, err := ParseByExtension("csv", []byte("a,b\n\"unterminated"))
	assert.Error(t, err)
}

func TestParseMarkdownFlattensTableWithRepeatedHeader(t *testing.T) {
	raw := "# Title\n\n| Name | Age |\n| --- | --- |\n| Alice | 30 |\n| Bob | 42 |\n"
	result, err := ParseByExtension("md", []byte(raw))
	require.NoError(t, err)
	assert.True(t, result.HasTables)
	assert.Contains(t, result.Text, "Name: Alice.")
	assert.Contains(t, result.Text, "Age: 30.")
	assert.Contains(t, result.Text, "Name: Bob.")
	assert.Contains(t, result.Text, "Age: 42.")
	assert.Contains(t, result.Text, "Title.")
}

func TestParseMarkdownDetectsImagesAndLinksButStripsImages(t *testing.T) {
	raw := "See ![alt](http://example.com/img.png) and visit https://example.com for more."
	result, err := ParseByExtension("md", []byte(raw))
	require.NoError(t, err)
	assert.True(t, result.HasImages)
	assert.True(t, result.HasLinks)
	assert.NotContains(t, result.Text, "![alt]")
}

func TestParseMarkdownConvertsListItemsToSentences(t *testing.T) {
	raw := "- first item\n- second item\n"
	result, err := ParseByExtension("md", []byte(raw))
	require.NoError(t, err)
	assert.Contains(t, result.Text, "first item.")
	assert.Contains(t, result.Text, "second item.")
}

func TestParseByExtensionUnknownFallsBackToPlainText(t *testing.T) {
	result, err := ParseByExtension("xyz", []byte("  raw   content\n\n\n\nwith   gaps  "))
	require.NoError(t, err)
	assert.False(t, result.HasTables)
	assert.NotContains(t, result.Text, "\n\n\n")
}
