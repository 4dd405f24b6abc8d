// prompt.go assembles the final prompt handed to the generator: a
// query-type-specific template, the packed context, safety guidelines and
// output-format instructions. The six templates mirror the structural
// sections of PromptEngine._initialize_prompt_templates (role framing,
// "Context Information:", the question, an "Instructions:" bullet list and
// a trailing "Answer:" sentinel) without carrying over its exact wording.
package rag

import (
	"fmt"
	"strings"

	"pai-smart-go/internal/model"
)

// PromptEngine builds model-ready prompts from a classified query, packed
// context and the caller's format/safety preferences.
type PromptEngine struct{}

func NewPromptEngine() *PromptEngine { return &PromptEngine{} }

func (e *PromptEngine) BuildPrompt(query model.RAGQuery, qtype model.QueryType, context string) string {
	var b strings.Builder
	b.WriteString(e.roleFraming(qtype))
	b.WriteString("\n\n")
	b.WriteString(e.safetyGuidelines(query.SafetyLevel))
	b.WriteString("\n\n")
	b.WriteString("Context Information:\n")
	if context == "" {
		b.WriteString("(no relevant context was found for this question)\n")
	} else {
		b.WriteString(context)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query.QueryText)
	b.WriteString("\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString(e.instructions(qtype))
	b.WriteString(e.formatInstructions(query.ResponseFormat))
	b.WriteString("\nAnswer:")
	return b.String()
}

func (e *PromptEngine) roleFraming(qtype model.QueryType) string {
	switch qtype {
	case model.QueryFactual:
		return "You are a precise research assistant. Answer the question using only the facts present in the context below."
	case model.QueryAnalytical:
		return "You are an analytical assistant. Explain causes, mechanisms and implications using only the context below."
	case model.QueryComparative:
		return "You are a comparison assistant. Weigh the items in the question against each other using only the context below."
	case model.QuerySummarization:
		return "You are a summarization assistant. Condense the context below into its essential points."
	case model.QueryCreative:
		return "You are a creative assistant. Use the context below as inspiration, but feel free to extrapolate reasonably."
	default:
		return "You are a helpful assistant. Answer the question using the context below."
	}
}

func (e *PromptEngine) instructions(qtype model.QueryType) string {
	base := []string{
		"- Base your answer only on the context information provided.",
		"- If the context does not contain the answer, say so explicitly instead of guessing.",
		"- Cite specific details from the context where relevant.",
	}
	switch qtype {
	case model.QueryAnalytical:
		base = append(base, "- Walk through cause and effect rather than just stating conclusions.")
	case model.QueryComparative:
		base = append(base, "- Structure the answer around the points of similarity and difference.")
	case model.QuerySummarization:
		base = append(base, "- Keep the summary shorter than the original context.")
	case model.QueryCreative:
		base = append(base, "- Clearly mark any part of the answer that goes beyond the given context.")
	}
	return strings.Join(base, "\n") + "\n"
}

func (e *PromptEngine) safetyGuidelines(level model.SafetyLevel) string {
	switch level {
	case model.SafetyConservative:
		return "Safety guidelines: decline to answer if the question touches on harmful, illegal or dangerous activity, even indirectly. Prefer omission over speculation."
	case model.SafetyPermissive:
		return "Safety guidelines: answer directly; only refuse requests for content that is clearly harmful or illegal."
	default:
		return "Safety guidelines: avoid providing instructions for harmful, illegal or dangerous activity; otherwise answer normally."
	}
}

func (e *PromptEngine) formatInstructions(format model.ResponseFormat) string {
	switch format {
	case model.FormatBulletPoints:
		return "- Format the answer as a bulleted list.\n"
	case model.FormatNumberedList:
		return "- Format the answer as a numbered list.\n"
	case model.FormatTable:
		return "- Format the answer as a markdown table.\n"
	case model.FormatJSON:
		return "- Format the answer as a single JSON object.\n"
	case model.FormatSummary:
		return "- Keep the answer to at most three sentences.\n"
	default:
		return ""
	}
}

// FallbackTemplate builds a minimal context-plus-question prompt. BuildPrompt
// does not call it: a query type with no framing of its own gets
// roleFraming's generic default inside BuildPrompt instead.
func (e *PromptEngine) FallbackTemplate(query model.RAGQuery, context string) string {
	return fmt.Sprintf("Answer the question using only this context:\n%s\n\nQuestion: %s\nAnswer:", context, query.QueryText)
}
