// validate.go reimplements validate_response's three checks (safety,
// context adherence, response quality) with the exact floors the original
// uses, so the numeric thresholds in the spec's response-validation step
// are backed by a concrete, tested rule rather than a vague "looks safe".
package rag

import (
	"regexp"
	"strings"

	"pai-smart-go/internal/model"
)

var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)how to (harm|hurt|kill|injure)`),
	regexp.MustCompile(`(?i)illegal (activities|methods|procedures)`),
	regexp.MustCompile(`(?i)dangerous (chemicals|substances|methods)`),
	regexp.MustCompile(`(?i)hack(ing|er)`),
	regexp.MustCompile(`(?i)exploit(ing|s)`),
	regexp.MustCompile(`(?i)bypass(ing)? (security|protection)`),
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true, "had": true,
	"what": true, "when": true, "where": true, "who": true, "which": true, "why": true,
	"how": true, "all": true, "would": true, "there": true, "their": true, "can": true,
	"could": true, "should": true, "do": true, "does": true, "did": true, "i": true,
	"you": true, "your": true, "we": true, "our": true, "or": true, "not": true,
	"no": true, "if": true, "about": true, "into": true, "than": true, "then": true,
}

var genericPhrases = []string{
	"i don't have enough information",
	"i cannot answer",
	"i don't know",
	"no information available",
}

// Validate checks a generated answer against the context it was grounded
// in and returns a ValidationStatus plus a score in [0,1] that is the lowest
// of the safety, context-adherence and quality scores.
// ValidationStatus is the worst of the three individual checks.
func Validate(answer, contextText string) (model.ValidationStatus, float64) {
	safetyScore, safetyIssues := checkSafety(answer)
	adherenceScore, adherenceOK := checkContextAdherence(answer, contextText)
	qualityScore, qualityIssues := checkQuality(answer)

	status := model.ValidationValid
	if safetyIssues > 0 {
		status = model.ValidationWarning
	}
	if !adherenceOK && contextText != "" {
		status = worseStatus(status, model.ValidationWarning)
	}
	if qualityIssues > 0 {
		status = worseStatus(status, model.ValidationWarning)
	}
	if safetyScore < 0.6 {
		status = model.ValidationError
	}

	overall := safetyScore
	if adherenceScore < overall {
		overall = adherenceScore
	}
	if qualityScore < overall {
		overall = qualityScore
	}
	return status, overall
}

func worseStatus(a, b model.ValidationStatus) model.ValidationStatus {
	rank := map[model.ValidationStatus]int{model.ValidationValid: 0, model.ValidationWarning: 1, model.ValidationError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// checkSafety scores 1.0 minus 0.1 per harmful pattern match, floored at 0.5.
func checkSafety(answer string) (float64, int) {
	count := 0
	for _, p := range harmfulPatterns {
		if p.MatchString(answer) {
			count++
		}
	}
	score := 1.0 - float64(count)*0.1
	if score < 0.5 {
		score = 0.5
	}
	return score, count
}

// checkContextAdherence measures word-set overlap between the answer and
// the context (minus stopwords); an answer with no overlap at all against a
// non-empty context scores 0.7, otherwise 1.0.
func checkContextAdherence(answer, contextText string) (float64, bool) {
	if contextText == "" {
		return 1.0, true
	}
	answerWords := significantWords(answer)
	contextWords := significantWords(contextText)
	if len(answerWords) == 0 {
		return 0.7, false
	}
	overlap := 0
	for w := range answerWords {
		if contextWords[w] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0.7, false
	}
	return 1.0, true
}

func significantWords(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()[]")
		if w == "" || stopwords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// checkQuality flags a response under 20 characters, or a generic
// "I don't know"-style phrase in a response under 100 characters, scoring
// 1.0 minus 0.1 per issue, floored at 0.6.
func checkQuality(answer string) (float64, int) {
	issues := 0
	if len(answer) < 20 {
		issues++
	}
	lower := strings.ToLower(answer)
	if len(answer) < 100 {
		for _, phrase := range genericPhrases {
			if strings.Contains(lower, phrase) {
				issues++
				break
			}
		}
	}
	score := 1.0 - float64(issues)*0.1
	if score < 0.6 {
		score = 0.6
	}
	return score, issues
}
