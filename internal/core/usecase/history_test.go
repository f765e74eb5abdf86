package usecase

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/oncoassist/triage/internal/core/domain"
)

func neighbor(category domain.Category, snippet string, age time.Duration) domain.Neighbor {
	return domain.Neighbor{
		ID:       "n-" + string(category),
		Category: category,
		Snippet:  snippet,
		StoredAt: time.Now().Add(-age),
	}
}

func TestHistoryStrongPatternBoostsConfidence(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryBloodTest, Confidence: 0.6}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryBloodTest, "cbc panel", time.Hour),
		neighbor(domain.CategoryBloodTest, "cbc panel", 2*time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "hb 13", neighbors)
	if math.Abs(enhanced.Confidence-0.8) > 1e-9 {
		t.Fatalf("expected boosted confidence 0.8, got %v", enhanced.Confidence)
	}
	if enhanced.Category != tentative.Category {
		t.Fatalf("category must not change, got %s", enhanced.Category)
	}
}

func TestHistoryStrongPatternCapsAtMax(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryInvoice, Confidence: 0.9}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryInvoice, "bill", time.Hour),
		neighbor(domain.CategoryInvoice, "bill", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "invoice", neighbors)
	if enhanced.Confidence != domain.MaxConfidence {
		t.Fatalf("expected cap %v, got %v", domain.MaxConfidence, enhanced.Confidence)
	}
}

func TestHistorySingleNeighborIsNotAStrongPattern(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryMedicine, Confidence: 0.5}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryMedicine, "dosage", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "medication", neighbors)
	if enhanced.Confidence != 0.5 {
		t.Fatalf("expected unchanged confidence, got %v", enhanced.Confidence)
	}
}

func TestHistoryWeakPatternLowersConfidence(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryRadiology, Confidence: 0.5}

	// No neighbor matches the winning category, so the full mixed list
	// is analyzed: three neighbors over two categories.
	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
		neighbor(domain.CategoryMedicine, "dosage", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "scan", neighbors)
	if math.Abs(enhanced.Confidence-0.4) > 1e-9 {
		t.Fatalf("expected lowered confidence 0.4, got %v", enhanced.Confidence)
	}
}

func TestHistoryWeakPatternFloorsConfidence(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryRadiology, Confidence: 0.32}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
		neighbor(domain.CategoryMedicine, "dosage", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "scan", neighbors)
	if enhanced.Confidence != 0.3 {
		t.Fatalf("expected floor 0.3, got %v", enhanced.Confidence)
	}
}

func TestHistoryRestrictsToWinningCategory(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryBloodTest, Confidence: 0.6}

	// Two blood_test neighbors form a strong pattern once the invoice
	// neighbor is filtered out.
	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
		neighbor(domain.CategoryInvoice, "bill", time.Hour),
		neighbor(domain.CategoryBloodTest, "cbc", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "hb 13", neighbors)
	if math.Abs(enhanced.Confidence-0.8) > 1e-9 {
		t.Fatalf("expected boosted confidence 0.8, got %v", enhanced.Confidence)
	}
}

func TestHistoryNoNeighborsLeavesSignalUntouched(t *testing.T) {
	a := NewHistoryAnalyzer(nil, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryMedicine, Confidence: 0.55}

	enhanced, insights := a.Enhance(tentative, "medication", nil)
	if enhanced != tentative {
		t.Fatalf("expected unchanged signal, got %+v", enhanced)
	}
	if len(insights) != 0 {
		t.Fatalf("expected no insights, got %v", insights)
	}
}

func TestHistoryInsightsReportRecentAndSharedPatterns(t *testing.T) {
	a := NewHistoryAnalyzer([]string{"hemoglobin", "tumor"}, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryBloodTest, Confidence: 0.6}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryBloodTest, "hemoglobin 12.1 on 11/02/2025", time.Hour),
		neighbor(domain.CategoryBloodTest, "hemoglobin 13.0", 45*24*time.Hour),
	}
	_, insights := a.Enhance(tentative, "Hemoglobin 13.2 drawn 12/03/2025", neighbors)

	joined := strings.Join(insights, "; ")
	if !strings.Contains(joined, "1 similar case(s) stored in the last 30 days") {
		t.Fatalf("expected recent-case insight, got %v", insights)
	}
	if !strings.Contains(joined, "numeric value patterns") {
		t.Fatalf("expected numeric pattern insight, got %v", insights)
	}
	if !strings.Contains(joined, "date patterns") {
		t.Fatalf("expected date pattern insight, got %v", insights)
	}
	if !strings.Contains(joined, "shared medical terms: hemoglobin") {
		t.Fatalf("expected shared term insight, got %v", insights)
	}
}

func TestHistoryInsightsNeverChangeCategory(t *testing.T) {
	a := NewHistoryAnalyzer([]string{"tumor"}, 30)
	tentative := domain.ClassifierSignal{Category: domain.CategoryRadiology, Confidence: 0.7}

	neighbors := []domain.Neighbor{
		neighbor(domain.CategoryInvoice, "tumor clinic bill 100", time.Hour),
		neighbor(domain.CategoryInvoice, "tumor clinic bill 200", time.Hour),
	}
	enhanced, _ := a.Enhance(tentative, "tumor imaging", neighbors)
	if enhanced.Category != domain.CategoryRadiology {
		t.Fatalf("insights must not change category, got %s", enhanced.Category)
	}
}
