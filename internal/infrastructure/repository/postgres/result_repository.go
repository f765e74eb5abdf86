package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oncoassist/triage/internal/core/domain"
)

// ResultRepository is the audit log of classification outcomes. The
// vector store answers similarity queries; this table answers "what
// did we decide and when".
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS classification_results (
	document_id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	evidence JSONB NOT NULL DEFAULT '{}'::jsonb,
	classified_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_classification_results_category ON classification_results(category);
CREATE INDEX IF NOT EXISTS idx_classification_results_classified_at ON classification_results(classified_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) Save(ctx context.Context, result *domain.ClassificationResult) error {
	evidenceJSON, err := json.Marshal(result.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO classification_results (document_id, category, confidence, evidence, classified_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (document_id) DO UPDATE SET
	category = EXCLUDED.category,
	confidence = EXCLUDED.confidence,
	evidence = EXCLUDED.evidence,
	classified_at = EXCLUDED.classified_at
`,
		result.DocumentID, string(result.Category), result.Confidence, evidenceJSON, result.ClassifiedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "save classification result", err)
	}
	return nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id string) (*domain.ClassificationResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, category, confidence, evidence, classified_at
FROM classification_results
WHERE document_id = $1
`, id)

	var result domain.ClassificationResult
	var category string
	var evidenceRaw []byte

	err := row.Scan(&result.DocumentID, &category, &result.Confidence, &evidenceRaw, &result.ClassifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "fetch classification result", err)
		}
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "fetch classification result", err)
	}

	if err := json.Unmarshal(evidenceRaw, &result.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	result.Category = domain.Category(category)
	return &result, nil
}

func (r *ResultRepository) Summary(ctx context.Context) (*domain.ResultSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT category, COUNT(*), COUNT(*) FILTER (WHERE classified_at >= $1)
FROM classification_results
GROUP BY category
`, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "summarize classification results", err)
	}
	defer rows.Close()

	summary := &domain.ResultSummary{
		ByCategory:  make(map[domain.Category]int),
		GeneratedAt: time.Now().UTC(),
	}
	for rows.Next() {
		var category string
		var count, recent int
		if err := rows.Scan(&category, &count, &recent); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary.ByCategory[domain.Category(category)] = count
		summary.Total += count
		summary.Last7Days += recent
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "summarize classification results", err)
	}
	return summary, nil
}
