package ports

import (
	"context"
	"io"

	"github.com/oncoassist/triage/internal/core/domain"
)

// Embedder builds the vector representation of a document text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embeddings and retrieves nearest neighbors.
// Upsert replaces the stored record when the id already exists.
type VectorStore interface {
	Upsert(ctx context.Context, record domain.VectorRecord) error
	NearestNeighbors(ctx context.Context, vector []float32, filter domain.SearchFilter, limit int) ([]domain.Neighbor, error)
}

// SemanticClassifier asks the language model for a category judgment.
// A malformed provider payload yields an unparsed outcome plus an
// error of kind domain.ErrClassificationParse.
type SemanticClassifier interface {
	ClassifyText(ctx context.Context, text string) (domain.SemanticOutcome, error)
}

// ResultRepository persists classification outcomes for audit.
type ResultRepository interface {
	Save(ctx context.Context, result *domain.ClassificationResult) error
	GetByID(ctx context.Context, id string) (*domain.ClassificationResult, error)
	Summary(ctx context.Context) (*domain.ResultSummary, error)
}

// ObjectStorage stores report attachments referenced by queue events.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor pulls plain text out of a stored attachment.
type TextExtractor interface {
	Extract(ctx context.Context, storageKey string) (string, error)
}

// MessageQueue publishes/consumes report-received events.
type MessageQueue interface {
	PublishReportReceived(ctx context.Context, event domain.ReportReceived) error
	SubscribeReportReceived(ctx context.Context, handler func(context.Context, domain.ReportReceived) error) error
}
