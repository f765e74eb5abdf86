package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/oncoassist/triage/internal/core/domain"
)

const (
	strongPatternBoost    = 0.2
	weakPatternPenalty    = 0.1
	minEnhancedConfidence = 0.3
)

// HistoryAnalyzer adjusts a tentative classification against previously
// stored neighbors and derives textual insights for the evidence
// payload. Insights never change the category.
type HistoryAnalyzer struct {
	medicalTerms []string
	windowDays   int
	now          func() time.Time
}

func NewHistoryAnalyzer(medicalTerms []string, windowDays int) *HistoryAnalyzer {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &HistoryAnalyzer{
		medicalTerms: medicalTerms,
		windowDays:   windowDays,
		now:          time.Now,
	}
}

// Enhance returns the adjusted signal plus insights. Neighbors are
// restricted to the tentative category when at least one matches;
// otherwise the full list is analyzed.
func (a *HistoryAnalyzer) Enhance(tentative domain.ClassifierSignal, text string, neighbors []domain.Neighbor) (domain.ClassifierSignal, []string) {
	if len(neighbors) == 0 {
		return tentative, nil
	}

	relevant := restrictToCategory(neighbors, tentative.Category)

	enhanced := tentative
	switch {
	case strongPattern(relevant):
		enhanced.Confidence += strongPatternBoost
		if enhanced.Confidence > domain.MaxConfidence {
			enhanced.Confidence = domain.MaxConfidence
		}
	case weakPattern(relevant):
		enhanced.Confidence -= weakPatternPenalty
		if enhanced.Confidence < minEnhancedConfidence {
			enhanced.Confidence = minEnhancedConfidence
		}
	}

	return enhanced, a.insights(text, relevant)
}

func restrictToCategory(neighbors []domain.Neighbor, category domain.Category) []domain.Neighbor {
	matching := make([]domain.Neighbor, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Category == category {
			matching = append(matching, n)
		}
	}
	if len(matching) == 0 {
		return neighbors
	}
	return matching
}

// strongPattern holds when at least two neighbors all share one
// category.
func strongPattern(neighbors []domain.Neighbor) bool {
	if len(neighbors) < 2 {
		return false
	}
	first := neighbors[0].Category
	for _, n := range neighbors[1:] {
		if n.Category != first {
			return false
		}
	}
	return true
}

// weakPattern holds when at least three neighbors span at most two
// distinct categories and the strong pattern does not.
func weakPattern(neighbors []domain.Neighbor) bool {
	if len(neighbors) < 3 || strongPattern(neighbors) {
		return false
	}
	distinct := make(map[domain.Category]struct{}, len(neighbors))
	for _, n := range neighbors {
		distinct[n.Category] = struct{}{}
	}
	return len(distinct) <= 2
}

func (a *HistoryAnalyzer) insights(text string, neighbors []domain.Neighbor) []string {
	var insights []string

	cutoff := a.now().Add(-time.Duration(a.windowDays) * 24 * time.Hour)
	recent := 0
	for _, n := range neighbors {
		if n.StoredAt.After(cutoff) {
			recent++
		}
	}
	if recent > 0 {
		insights = append(insights, fmt.Sprintf("%d similar case(s) stored in the last %d days", recent, a.windowDays))
	}

	if numericPattern.MatchString(text) && anySnippetMatches(neighbors, numericPattern.MatchString) {
		insights = append(insights, "shares numeric value patterns with similar cases")
	}
	if datePattern.MatchString(text) && anySnippetMatches(neighbors, datePattern.MatchString) {
		insights = append(insights, "shares date patterns with similar cases")
	}

	if shared := a.sharedMedicalTerms(text, neighbors); len(shared) > 0 {
		insights = append(insights, "shared medical terms: "+strings.Join(shared, ", "))
	}

	return insights
}

func anySnippetMatches(neighbors []domain.Neighbor, match func(string) bool) bool {
	for _, n := range neighbors {
		if match(n.Snippet) {
			return true
		}
	}
	return false
}

const maxSharedTerms = 10

func (a *HistoryAnalyzer) sharedMedicalTerms(text string, neighbors []domain.Neighbor) []string {
	lowerText := strings.ToLower(text)
	lowerSnippets := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		lowerSnippets = append(lowerSnippets, strings.ToLower(n.Snippet))
	}

	var shared []string
	for _, term := range a.medicalTerms {
		if !strings.Contains(lowerText, term) {
			continue
		}
		for _, snippet := range lowerSnippets {
			if strings.Contains(snippet, term) {
				shared = append(shared, term)
				break
			}
		}
		if len(shared) == maxSharedTerms {
			break
		}
	}
	return shared
}
