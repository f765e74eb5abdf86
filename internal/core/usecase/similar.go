package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/core/ports"
)

// FindSimilarUseCase answers ad-hoc "what does this look like"
// queries: embed the text and search the store directly, without
// running the classification pipeline.
type FindSimilarUseCase struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
}

func NewFindSimilarUseCase(embedder ports.Embedder, vectorDB ports.VectorStore) *FindSimilarUseCase {
	return &FindSimilarUseCase{embedder: embedder, vectorDB: vectorDB}
}

func (uc *FindSimilarUseCase) FindSimilar(ctx context.Context, text string, filter domain.SearchFilter, limit int) ([]domain.SimilarCase, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "find similar", errors.New("empty query text"))
	}
	if limit <= 0 {
		limit = 5
	}

	vector, err := uc.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := uc.vectorDB.NearestNeighbors(ctx, vector, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar cases: %w", err)
	}
	return toSimilarCases(neighbors), nil
}
