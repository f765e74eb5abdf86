package usecase

import (
	"regexp"
	"strings"

	"github.com/oncoassist/triage/internal/core/domain"
)

var (
	currencyPattern = regexp.MustCompile(`[$€£₪]\s?\d|(?i)\b(amount|total|bill)\b`)
	numericPattern  = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	datePattern     = regexp.MustCompile(`\b\d{1,4}[./-]\d{1,2}[./-]\d{1,4}\b|(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2}\b`)
)

var treatmentVocabulary = []string{"diagnosis", "treatment", "medication", "prescription"}

// StructuralClassifier inspects the shape of the text rather than its
// vocabulary: currency amounts, lab-style numbers next to dates,
// treatment wording. First matching probe wins.
type StructuralClassifier struct{}

func NewStructuralClassifier() *StructuralClassifier {
	return &StructuralClassifier{}
}

func (c *StructuralClassifier) Classify(text string) domain.ClassifierSignal {
	switch {
	case currencyPattern.MatchString(text):
		return domain.ClassifierSignal{Category: domain.CategoryInvoice, Confidence: 0.7}
	case numericPattern.MatchString(text) && datePattern.MatchString(text):
		return domain.ClassifierSignal{Category: domain.CategoryBloodTest, Confidence: 0.6}
	case containsAny(text, treatmentVocabulary):
		return domain.ClassifierSignal{Category: domain.CategoryMedicine, Confidence: 0.5}
	default:
		return domain.ClassifierSignal{Category: domain.CategoryRadiology, Confidence: 0.4}
	}
}

func containsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
