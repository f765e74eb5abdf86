package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/core/ports"
)

const snippetMaxChars = 500

// Degradation notes attached to result evidence. Exported so consumers
// can map them onto metrics without re-parsing free text.
const (
	InsightSemanticUnavailable = "semantic classifier unavailable"
	InsightHistoryUnavailable  = "historical context unavailable"
	InsightPersistenceFailed   = "result persistence failed"
)

// StageTimeouts bounds each network-bound pipeline stage. Zero means
// no extra deadline beyond the caller's context.
type StageTimeouts struct {
	Embed    time.Duration
	Retrieve time.Duration
	Semantic time.Duration
	Persist  time.Duration
}

// ClassifyDocumentUseCase runs the full pipeline for one document:
// validate, embed, retrieve neighbors, classify (semantic concurrent
// with the heuristics), combine, enhance with history, persist.
type ClassifyDocumentUseCase struct {
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	semantic   ports.SemanticClassifier
	keyword    *KeywordClassifier
	structural *StructuralClassifier
	ensemble   *EnsembleAggregator
	history    *HistoryAnalyzer
	results    ports.ResultRepository
	topK       int
	timeouts   StageTimeouts
}

func NewClassifyDocumentUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	semantic ports.SemanticClassifier,
	keyword *KeywordClassifier,
	structural *StructuralClassifier,
	ensemble *EnsembleAggregator,
	history *HistoryAnalyzer,
	results ports.ResultRepository,
	topK int,
	timeouts StageTimeouts,
) *ClassifyDocumentUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &ClassifyDocumentUseCase{
		embedder:   embedder,
		vectorDB:   vectorDB,
		semantic:   semantic,
		keyword:    keyword,
		structural: structural,
		ensemble:   ensemble,
		history:    history,
		results:    results,
		topK:       topK,
		timeouts:   timeouts,
	}
}

type semanticReply struct {
	outcome domain.SemanticOutcome
	err     error
}

// Classify returns the result and, on persistence failure only, both
// the result and the wrapped error. Any earlier fatal failure returns
// a nil result.
func (uc *ClassifyDocumentUseCase) Classify(ctx context.Context, doc domain.Document) (*domain.ClassificationResult, error) {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify document", errors.New("empty document text"))
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	semanticCh := uc.startSemantic(ctx, text)

	keywordSignal := uc.keyword.Classify(text)
	structuralSignal := uc.structural.Classify(text)

	vector, err := uc.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	neighbors, insights := uc.retrieve(ctx, vector)

	semanticSignal, semanticInsights := uc.awaitSemantic(ctx, doc.ID, semanticCh)
	insights = append(insights, semanticInsights...)

	tentative := uc.ensemble.Combine(semanticSignal, &keywordSignal, &structuralSignal)

	enhanced, historyInsights := uc.history.Enhance(tentative, text, neighbors)
	insights = append(insights, historyInsights...)

	result := &domain.ClassificationResult{
		DocumentID: doc.ID,
		Category:   enhanced.Category,
		Confidence: enhanced.Confidence,
		Evidence: domain.Evidence{
			SimilarCases: toSimilarCases(neighbors),
			Insights:     insights,
		},
		ClassifiedAt: time.Now().UTC(),
	}

	if err := uc.persist(ctx, doc, text, vector, result); err != nil {
		result.Evidence.Insights = append(result.Evidence.Insights, InsightPersistenceFailed)
		return result, err
	}
	return result, nil
}

func (uc *ClassifyDocumentUseCase) startSemantic(ctx context.Context, text string) <-chan semanticReply {
	ch := make(chan semanticReply, 1)
	go func() {
		stageCtx, cancel := uc.stageContext(ctx, uc.timeouts.Semantic)
		defer cancel()
		outcome, err := uc.semantic.ClassifyText(stageCtx, text)
		ch <- semanticReply{outcome: outcome, err: err}
	}()
	return ch
}

func (uc *ClassifyDocumentUseCase) awaitSemantic(ctx context.Context, documentID string, ch <-chan semanticReply) (*domain.ClassifierSignal, []string) {
	var reply semanticReply
	select {
	case reply = <-ch:
	case <-ctx.Done():
		reply = semanticReply{err: ctx.Err()}
	}

	if reply.err != nil || !reply.outcome.Parsed {
		slog.Warn("semantic_classifier_degraded",
			"document_id", documentID,
			"error", reply.err,
			"raw", reply.outcome.Raw,
		)
		return nil, []string{InsightSemanticUnavailable}
	}

	signal := reply.outcome.Signal
	insights := []string(nil)
	if reply.outcome.Reasoning != "" {
		insights = append(insights, "semantic reasoning: "+reply.outcome.Reasoning)
	}
	return &signal, insights
}

func (uc *ClassifyDocumentUseCase) embed(ctx context.Context, text string) ([]float32, error) {
	stageCtx, cancel := uc.stageContext(ctx, uc.timeouts.Embed)
	defer cancel()

	vector, err := uc.embedder.EmbedText(stageCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	return vector, nil
}

// retrieve degrades to an empty neighbor list; a store outage must not
// block classification.
func (uc *ClassifyDocumentUseCase) retrieve(ctx context.Context, vector []float32) ([]domain.Neighbor, []string) {
	stageCtx, cancel := uc.stageContext(ctx, uc.timeouts.Retrieve)
	defer cancel()

	neighbors, err := uc.vectorDB.NearestNeighbors(stageCtx, vector, domain.SearchFilter{}, uc.topK)
	if err != nil {
		slog.Warn("neighbor_retrieval_degraded", "error", err)
		return nil, []string{InsightHistoryUnavailable}
	}
	return neighbors, nil
}

func (uc *ClassifyDocumentUseCase) persist(ctx context.Context, doc domain.Document, text string, vector []float32, result *domain.ClassificationResult) error {
	stageCtx, cancel := uc.stageContext(ctx, uc.timeouts.Persist)
	defer cancel()

	record := domain.VectorRecord{
		ID:         doc.ID,
		Embedding:  vector,
		Category:   result.Category,
		PatientRef: doc.PatientRef,
		Source:     doc.Source,
		Snippet:    snippet(text),
		StoredAt:   result.ClassifiedAt,
	}
	if err := uc.vectorDB.Upsert(stageCtx, record); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "persist vector record", err)
	}

	if err := uc.results.Save(stageCtx, result); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "persist classification result", err)
	}
	return nil
}

func (uc *ClassifyDocumentUseCase) stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func toSimilarCases(neighbors []domain.Neighbor) []domain.SimilarCase {
	cases := make([]domain.SimilarCase, 0, len(neighbors))
	for _, n := range neighbors {
		cases = append(cases, domain.SimilarCase{
			DocumentID: n.ID,
			Category:   n.Category,
			Similarity: n.Similarity,
			StoredAt:   n.StoredAt,
		})
	}
	return cases
}

// snippet truncates on a rune boundary; a byte-offset cut could split a
// multi-byte rune and produce invalid UTF-8, which Postgres rejects.
func snippet(text string) string {
	if len(text) <= snippetMaxChars {
		return text
	}
	cut := snippetMaxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
