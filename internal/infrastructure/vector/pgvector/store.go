package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/infrastructure/resilience"
)

// Store keeps one embedding row per document in Postgres with the
// pgvector extension. Upsert replaces the previous row for an id, so
// re-classifying a document never duplicates it.
type Store struct {
	db         *sql.DB
	dimensions int
	executor   *resilience.Executor
}

func NewStore(db *sql.DB, dimensions int, executor *resilience.Executor) *Store {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Store{db: db, dimensions: dimensions, executor: executor}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS report_vectors (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	category TEXT NOT NULL,
	patient_ref TEXT,
	source TEXT,
	snippet TEXT NOT NULL DEFAULT '',
	stored_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_vectors_embedding
	ON report_vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
CREATE INDEX IF NOT EXISTS idx_report_vectors_category ON report_vectors(category);
CREATE INDEX IF NOT EXISTS idx_report_vectors_stored_at ON report_vectors(stored_at DESC);
`, s.dimensions)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, record domain.VectorRecord) error {
	if len(record.Embedding) != s.dimensions {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"upsert vector record",
			fmt.Errorf("embedding size %d, want %d", len(record.Embedding), s.dimensions),
		)
	}

	err := s.execute(ctx, "pgvector_upsert", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO report_vectors (id, embedding, category, patient_ref, source, snippet, stored_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	embedding = EXCLUDED.embedding,
	category = EXCLUDED.category,
	patient_ref = EXCLUDED.patient_ref,
	source = EXCLUDED.source,
	snippet = EXCLUDED.snippet,
	stored_at = EXCLUDED.stored_at
`,
			record.ID, pgvec.NewVector(record.Embedding), string(record.Category),
			record.PatientRef, record.Source, record.Snippet, record.StoredAt,
		)
		return err
	})
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "upsert vector record", err)
	}
	return nil
}

func (s *Store) NearestNeighbors(ctx context.Context, vector []float32, filter domain.SearchFilter, limit int) ([]domain.Neighbor, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
SELECT id, category, COALESCE(patient_ref, ''), snippet, 1 - (embedding <=> $1) AS similarity, stored_at
FROM report_vectors
`
	args := []any{pgvec.NewVector(vector)}
	where := ""
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		where = fmt.Sprintf("WHERE category = $%d\n", len(args))
	}
	if filter.PatientRef != "" {
		args = append(args, filter.PatientRef)
		if where == "" {
			where = fmt.Sprintf("WHERE patient_ref = $%d\n", len(args))
		} else {
			where += fmt.Sprintf("AND patient_ref = $%d\n", len(args))
		}
	}
	args = append(args, limit)
	query += where + fmt.Sprintf("ORDER BY embedding <=> $1 ASC, stored_at DESC\nLIMIT $%d", len(args))

	var neighbors []domain.Neighbor
	err := s.execute(ctx, "pgvector_search", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		neighbors = neighbors[:0]
		for rows.Next() {
			var n domain.Neighbor
			var category string
			if err := rows.Scan(&n.ID, &category, &n.PatientRef, &n.Snippet, &n.Similarity, &n.StoredAt); err != nil {
				return fmt.Errorf("scan neighbor: %w", err)
			}
			n.Category = domain.Category(category)
			n.Similarity = clampSimilarity(n.Similarity)
			neighbors = append(neighbors, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "search nearest neighbors", err)
	}
	return neighbors, nil
}

func (s *Store) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if s.executor == nil {
		return fn(ctx)
	}
	return s.executor.Execute(ctx, operation, fn, classifyStoreError)
}

// Cosine distance can drift slightly outside [0,2] on normalized
// vectors, so the derived similarity is clamped to [0,1].
func clampSimilarity(similarity float64) float64 {
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
