package executor

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hmiyata/cascade/internal/model"
)

// Confidence bases per heuristic. Short or empty documents degrade these;
// the perturbation strategy may degrade them further.
const (
	baseConfidenceRich   = 0.95
	baseConfidenceThin   = 0.55
	emptyDocConfidence   = 0.15
	summaryExcerptLength = 120
)

func (e *HeuristicExecutor) summarize(text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "No source material available to summarize.", emptyDocConfidence
	}

	summary := trimmed
	if len(trimmed) > summaryExcerptLength {
		summary = trimmed[:summaryExcerptLength] + "..."
	}
	return summary, docConfidence(trimmed)
}

func (e *HeuristicExecutor) extract(text string) (string, float64) {
	terms := keyTerms(text, 5)
	if len(terms) == 0 {
		return "No key terms found in source material.", emptyDocConfidence
	}
	return "Key terms: " + strings.Join(terms, ", "), docConfidence(text)
}

func (e *HeuristicExecutor) analyze(text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "No source material available to analyze.", emptyDocConfidence
	}

	words := strings.Fields(trimmed)
	sentences := sentenceCount(trimmed)
	avgLen := 0.0
	for _, w := range words {
		avgLen += float64(len(w))
	}
	if len(words) > 0 {
		avgLen /= float64(len(words))
	}

	result := fmt.Sprintf("Analysis: %d sentences, %d words, average word length %.1f characters.",
		sentences, len(words), avgLen)
	return result, docConfidence(trimmed)
}

func (e *HeuristicExecutor) validate(task model.Task, text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "No source material available to validate against.", emptyDocConfidence
	}

	markers := factualMarkers(trimmed)
	if markers == 0 {
		return "No verifiable factual markers found in source material.", baseConfidenceThin
	}

	confidence := docConfidence(trimmed)
	// Ungrounded validation is inherently less trustworthy.
	if task.TruthMode != model.TruthModeSourceOfTruth {
		confidence -= 0.2
	}
	return fmt.Sprintf("Checked %d factual markers against source material.", markers), confidence
}

func (e *HeuristicExecutor) generate(task model.Task, text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "Generated output without source grounding: " + task.Description, baseConfidenceThin
	}

	excerpt := trimmed
	if len(excerpt) > 80 {
		excerpt = excerpt[:80] + "..."
	}
	result := fmt.Sprintf("%s — based on source material beginning: %q", task.Description, excerpt)
	return result, docConfidence(trimmed)
}

func (e *HeuristicExecutor) aggregate(text string) (string, float64) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "Nothing to aggregate: no source material.", emptyDocConfidence
	}

	terms := keyTerms(trimmed, 3)
	result := fmt.Sprintf("Aggregated overview covering %d sentences; dominant themes: %s.",
		sentenceCount(trimmed), strings.Join(terms, ", "))
	return result, docConfidence(trimmed)
}

// docConfidence scales the base confidence by how much material there is to
// work with.
func docConfidence(text string) float64 {
	n := len(strings.TrimSpace(text))
	switch {
	case n == 0:
		return emptyDocConfidence
	case n < 80:
		return baseConfidenceThin
	case n < 200:
		return 0.75
	default:
		return baseConfidenceRich
	}
}

func sentenceCount(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}

// keyTerms returns the most frequent words longer than 4 characters,
// ties broken alphabetically for determinism.
func keyTerms(text string, limit int) []string {
	freq := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 4 {
			freq[w]++
		}
	}

	terms := make([]string, 0, len(freq))
	for w := range freq {
		terms = append(terms, w)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// factualMarkers counts tokens that look checkable: numbers, percentages,
// capitalized proper nouns mid-sentence.
func factualMarkers(text string) int {
	count := 0
	words := strings.Fields(text)
	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%'
		})
		if trimmed == "" {
			continue
		}
		if strings.ContainsAny(trimmed, "0123456789") {
			count++
			continue
		}
		first := []rune(trimmed)[0]
		if i > 0 && unicode.IsUpper(first) && !sentenceStart(words[i-1]) {
			count++
		}
	}
	return count
}

func sentenceStart(prevWord string) bool {
	return strings.HasSuffix(prevWord, ".") ||
		strings.HasSuffix(prevWord, "!") ||
		strings.HasSuffix(prevWord, "?")
}
