package rag

import (
	"strings"

	"pai-smart-go/internal/model"
)

// keyword lists below are copied from the keyword sets classify_query_type
// checks against, matched case-insensitively and by substring like the
// original. First matching category wins, checked in this fixed order.
var classifyKeywords = []struct {
	qtype    model.QueryType
	keywords []string
}{
	{model.QueryFactual, []string{"what is", "when", "where", "who", "how many", "how much", "facts", "data"}},
	{model.QueryAnalytical, []string{"analyze", "explain", "why", "how does", "what causes", "implications", "trends", "analysis"}},
	{model.QueryComparative, []string{"compare", "difference", "similar", "versus", "vs", "contrast", "better", "worse"}},
	{model.QuerySummarization, []string{"summarize", "summary", "overview", "brief", "key points", "main points"}},
	{model.QueryCreative, []string{"creative", "innovative", "ideas", "suggestions", "brainstorm", "imagine"}},
}

// ClassifyQueryType assigns a QueryType by keyword heuristics, falling back
// to QueryGeneral when nothing matches.
func ClassifyQueryType(query string) model.QueryType {
	lower := strings.ToLower(query)
	for _, group := range classifyKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.qtype
			}
		}
	}
	return model.QueryGeneral
}
