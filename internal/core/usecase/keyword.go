package usecase

import (
	"strings"

	"github.com/oncoassist/triage/internal/core/domain"
)

const (
	keywordMaxConfidence      = 0.8
	keywordFallbackConfidence = 0.1
)

// KeywordClassifier scores a document by counting marker keyword
// occurrences per category. Deterministic, no external calls.
type KeywordClassifier struct {
	markers map[domain.Category][]string
}

func NewKeywordClassifier(markers map[domain.Category][]string) *KeywordClassifier {
	return &KeywordClassifier{markers: markers}
}

func (c *KeywordClassifier) Classify(text string) domain.ClassifierSignal {
	lower := strings.ToLower(text)

	var best domain.Category
	bestScore := 0
	for _, category := range domain.Categories {
		score := 0
		for _, marker := range c.markers[category] {
			score += strings.Count(lower, marker)
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}

	if bestScore == 0 {
		// No marker matched anywhere. Radiology is the documented
		// fallback, not a signal of correctness.
		return domain.ClassifierSignal{
			Category:   domain.CategoryRadiology,
			Confidence: keywordFallbackConfidence,
		}
	}

	confidence := float64(bestScore) / 10
	if confidence > keywordMaxConfidence {
		confidence = keywordMaxConfidence
	}
	return domain.ClassifierSignal{Category: best, Confidence: confidence}
}
