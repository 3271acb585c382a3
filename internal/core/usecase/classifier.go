package usecase

import (
	"strings"
	"unicode"
)

// Phrases asking to rework a previous answer. They always get the full
// retrieval treatment, however short the message is.
var metaConversationPhrases = []string{
	"rephrase",
	"reframe",
	"reword",
	"clarify",
	"elaborate",
	"simplify",
	"explain again",
	"explain that",
	"explain it",
	"say that again",
	"say it differently",
	"in simpler words",
	"in other words",
	"what do you mean",
	"what did you mean",
	"tell me more",
	"go deeper",
	"another way",
}

var conversationalLexicon = map[string]struct{}{
	"hi":                {},
	"hii":               {},
	"hello":             {},
	"hey":               {},
	"hey there":         {},
	"hello there":       {},
	"namaste":           {},
	"namaskar":          {},
	"pranam":            {},
	"radhe radhe":       {},
	"jai shri krishna":  {},
	"hare krishna":      {},
	"good morning":      {},
	"good afternoon":    {},
	"good evening":      {},
	"good night":        {},
	"how are you":       {},
	"how are you doing": {},
	"whats up":          {},
	"what's up":         {},
	"thanks":            {},
	"thank you":         {},
	"thank you so much": {},
	"thanks a lot":      {},
	"ok":                {},
	"okay":              {},
	"cool":              {},
	"great":             {},
	"nice":              {},
	"bye":               {},
	"goodbye":           {},
	"see you":           {},
	"see you later":     {},
	"take care":         {},
}

const conversationalMaxTokens = 3

// IsConversational decides whether a query can skip retrieval.
func IsConversational(text string) bool {
	normalized := normalizeQueryText(text)
	if normalized == "" {
		return true
	}

	for _, phrase := range metaConversationPhrases {
		if strings.Contains(normalized, phrase) {
			return false
		}
	}

	if _, ok := conversationalLexicon[normalized]; ok {
		return true
	}
	return len(strings.Fields(normalized)) < conversationalMaxTokens
}

func normalizeQueryText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.TrimRightFunc(normalized, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	return strings.Join(strings.Fields(normalized), " ")
}
