package bootstrap

import (
	"context"
	"fmt"

	"github.com/oncoassist/triage/internal/config"
	"github.com/oncoassist/triage/internal/core/ports"
	"github.com/oncoassist/triage/internal/core/usecase"
	"github.com/oncoassist/triage/internal/infrastructure/extractor/pdftext"
	"github.com/oncoassist/triage/internal/infrastructure/llm/openai"
	"github.com/oncoassist/triage/internal/infrastructure/queue/nats"
	"github.com/oncoassist/triage/internal/infrastructure/repository/postgres"
	"github.com/oncoassist/triage/internal/infrastructure/resilience"
	"github.com/oncoassist/triage/internal/infrastructure/storage/localfs"
	"github.com/oncoassist/triage/internal/infrastructure/vector/pgvector"
	"github.com/oncoassist/triage/internal/observability/metrics"
)

type App struct {
	Config   config.Config
	Settings config.ClassifierSettings

	Queue     ports.MessageQueue
	Storage   ports.ObjectStorage
	Extractor ports.TextExtractor
	Results   ports.ResultRepository

	ClassifyUC *usecase.ClassifyDocumentUseCase
	SimilarUC  *usecase.FindSimilarUseCase

	Pipeline *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	settings, err := config.LoadClassifierSettings(cfg.ClassifierConfig)
	if err != nil {
		return nil, fmt.Errorf("load classifier settings: %w", err)
	}

	db, err := pgvector.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		RetryJitter:         cfg.RetryJitter,
		BreakerEnabled:      cfg.BreakerEnabled,
	})

	vectorDB := pgvector.NewStore(db, cfg.EmbedDimensions, executor)
	if err := vectorDB.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure vector schema: %w", err)
	}

	results := postgres.NewResultRepository(db)
	if err := results.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure result schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openai.New(openai.Config{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		EmbedModel:        cfg.OpenAIEmbedModel,
		ChatModel:         cfg.OpenAIChatModel,
		Dimensions:        cfg.EmbedDimensions,
		RequestsPerSecond: cfg.OpenAIRPS,
		Burst:             cfg.OpenAIBurst,
	}, executor)
	embedder := openai.NewEmbedder(llmClient)
	semantic := openai.NewClassifier(llmClient)

	keyword := usecase.NewKeywordClassifier(settings.KeywordMarkers)
	structural := usecase.NewStructuralClassifier()
	ensemble := usecase.NewEnsembleAggregator(usecase.EnsembleWeights{
		Semantic:   settings.Weights.Semantic,
		Keyword:    settings.Weights.Keyword,
		Structural: settings.Weights.Structural,
	})
	history := usecase.NewHistoryAnalyzer(settings.MedicalTerms, settings.NeighborWindowDays)

	classifyUC := usecase.NewClassifyDocumentUseCase(
		embedder,
		vectorDB,
		semantic,
		keyword,
		structural,
		ensemble,
		history,
		results,
		cfg.NeighborTopK,
		usecase.StageTimeouts{
			Embed:    cfg.EmbedTimeout,
			Retrieve: cfg.RetrieveTimeout,
			Semantic: cfg.SemanticTimeout,
			Persist:  cfg.PersistTimeout,
		},
	)
	similarUC := usecase.NewFindSimilarUseCase(embedder, vectorDB)

	return &App{
		Config:   cfg,
		Settings: settings,

		Queue:     queue,
		Storage:   storage,
		Extractor: pdftext.NewExtractor(storage),
		Results:   results,

		ClassifyUC: classifyUC,
		SimilarUC:  similarUC,

		Pipeline: metrics.NewPipelineMetrics(service),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
