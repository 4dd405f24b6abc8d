package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pai-smart-go/internal/model"
)

func TestClassifyQueryTypeByKeyword(t *testing.T) {
	cases := []struct {
		query string
		want  model.QueryType
	}{
		{"What is the capital of France?", model.QueryFactual},
		{"Why does latency spike under load?", model.QueryAnalytical},
		{"Compare plan A versus plan B", model.QueryComparative},
		{"Summarize this document for me", model.QuerySummarization},
		{"Give me some creative ideas for the launch", model.QueryCreative},
		{"Tell me a story about a dragon", model.QueryGeneral},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyQueryType(c.query), "query=%q", c.query)
	}
}

func TestClassifyQueryTypeFirstMatchingGroupWins(t *testing.T) {
	// Contains both a factual ("what is") and analytical ("explain") cue;
	// factual is checked first and should win.
	assert.Equal(t, model.QueryFactual, ClassifyQueryType("what is the reason, explain briefly"))
}

func TestClassifyQueryTypeIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, model.QueryComparative, ClassifyQueryType("COMPARE these two approaches"))
}
