package ports

import (
	"context"

	"github.com/oncoassist/triage/internal/core/domain"
)

// DocumentClassifier is the inbound contract for the classification
// pipeline. On persistence failure the result is returned together
// with the wrapped error; callers decide how to degrade.
type DocumentClassifier interface {
	Classify(ctx context.Context, doc domain.Document) (*domain.ClassificationResult, error)
}

// SimilarCaseFinder is the inbound contract for ad-hoc neighbor search.
type SimilarCaseFinder interface {
	FindSimilar(ctx context.Context, text string, filter domain.SearchFilter, limit int) ([]domain.SimilarCase, error)
}

// ResultReader is the inbound read model for stored outcomes.
type ResultReader interface {
	GetByID(ctx context.Context, id string) (*domain.ClassificationResult, error)
	Summary(ctx context.Context) (*domain.ResultSummary, error)
}
