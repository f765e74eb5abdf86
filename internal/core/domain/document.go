package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of medical document categories the
// pipeline assigns. Every classification result maps to exactly one.
type Category string

const (
	CategoryRadiology Category = "radiology"
	CategoryBloodTest Category = "blood_test"
	CategoryInvoice   Category = "invoice"
	CategoryMedicine  Category = "medicine"
)

// Categories lists the valid categories in stable order.
var Categories = []Category{
	CategoryRadiology,
	CategoryBloodTest,
	CategoryInvoice,
	CategoryMedicine,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryRadiology, CategoryBloodTest, CategoryInvoice, CategoryMedicine:
		return true
	}
	return false
}

// ParseCategory maps free-form provider output onto the enum. The
// language model occasionally answers with spaces or hyphens.
func ParseCategory(raw string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "radiology", "imaging", "scan":
		return CategoryRadiology, nil
	case "blood_test", "bloodtest", "lab_result":
		return CategoryBloodTest, nil
	case "invoice", "billing", "bill":
		return CategoryInvoice, nil
	case "medicine", "medication", "prescription":
		return CategoryMedicine, nil
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Document is a classification input: a clinical text fragment with
// its routing metadata.
type Document struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Source     string            `json:"source,omitempty"`
	PatientRef string            `json:"patient_ref,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	Sender     string            `json:"sender,omitempty"`
	ReceivedAt time.Time         `json:"received_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ClassifierSignal is one classifier's vote: a category with a
// confidence in [0,1].
type ClassifierSignal struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// SemanticOutcome is the tagged result of the language-model
// classifier. Callers must branch on Parsed: when the provider returns
// a malformed payload only Raw carries information.
type SemanticOutcome struct {
	Parsed    bool             `json:"parsed"`
	Signal    ClassifierSignal `json:"signal"`
	Reasoning string           `json:"reasoning,omitempty"`
	Raw       string           `json:"raw,omitempty"`
}

// SimilarCase references a previously classified document retrieved as
// a nearest neighbor of the current one.
type SimilarCase struct {
	DocumentID string    `json:"document_id"`
	Category   Category  `json:"category"`
	Similarity float64   `json:"similarity"`
	StoredAt   time.Time `json:"stored_at"`
}

// Evidence carries the supporting material attached to a result:
// retrieved neighbors plus textual insights, including degradation
// notes when a pipeline stage was skipped.
type Evidence struct {
	SimilarCases []SimilarCase `json:"similar_cases"`
	Insights     []string      `json:"insights"`
}

// MaxConfidence caps every reported confidence. A classification is
// never presented as certain.
const MaxConfidence = 0.95

// ClassificationResult is the pipeline output for one document.
type ClassificationResult struct {
	DocumentID   string    `json:"document_id"`
	Category     Category  `json:"category"`
	Confidence   float64   `json:"confidence"`
	Evidence     Evidence  `json:"evidence"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// ResultSummary aggregates stored classification outcomes.
type ResultSummary struct {
	Total       int              `json:"total"`
	ByCategory  map[Category]int `json:"by_category"`
	Last7Days   int              `json:"last_7_days"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ReportReceived is the queue event consumed by the worker. Either
// Text is inline or StorageKey points at a stored attachment.
type ReportReceived struct {
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text,omitempty"`
	StorageKey string    `json:"storage_key,omitempty"`
	Source     string    `json:"source,omitempty"`
	PatientRef string    `json:"patient_ref,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}
