package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oncoassist/triage/internal/bootstrap"
	"github.com/oncoassist/triage/internal/config"
	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/core/usecase"
	"github.com/oncoassist/triage/internal/observability/logging"
	"github.com/oncoassist/triage/internal/observability/metrics"
)

const service = "triage-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Pipeline.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeReportReceived(ctx, func(handlerCtx context.Context, event domain.ReportReceived) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.ProcessTimeout)
		defer cancel()
		return classifyReport(processCtx, app, event)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func classifyReport(ctx context.Context, app *bootstrap.App, event domain.ReportReceived) error {
	text := strings.TrimSpace(event.Text)
	if text == "" && event.StorageKey != "" {
		extracted, err := app.Extractor.Extract(ctx, event.StorageKey)
		if err != nil {
			return fmt.Errorf("extract report text: %w", err)
		}
		text = extracted
	}

	app.Pipeline.StartClassification()
	start := time.Now()
	result, err := app.ClassifyUC.Classify(ctx, domain.Document{
		ID:         event.DocumentID,
		Text:       text,
		Source:     event.Source,
		PatientRef: event.PatientRef,
		Subject:    event.Subject,
		Sender:     event.Sender,
		ReceivedAt: event.ReceivedAt,
	})
	app.Pipeline.FinishClassification(result, time.Since(start), err)
	recordDegradedSignals(app.Pipeline, result)

	if err != nil {
		if result != nil {
			// Classification succeeded but could not be stored; the
			// result is logged and the event is not retried.
			slog.Warn("classification stored nothing",
				"document_id", result.DocumentID,
				"category", result.Category,
				"error", err,
			)
			return nil
		}
		return err
	}

	slog.Info("document classified",
		"document_id", result.DocumentID,
		"category", result.Category,
		"confidence", result.Confidence,
	)
	return nil
}

// recordDegradedSignals maps the pipeline's degradation notes onto the
// degraded-signals counter.
func recordDegradedSignals(pipeline *metrics.PipelineMetrics, result *domain.ClassificationResult) {
	if result == nil {
		return
	}
	for _, insight := range result.Evidence.Insights {
		switch insight {
		case usecase.InsightSemanticUnavailable:
			pipeline.RecordDegradedSignal("semantic")
		case usecase.InsightHistoryUnavailable:
			pipeline.RecordDegradedSignal("retrieval")
		case usecase.InsightPersistenceFailed:
			pipeline.RecordDegradedSignal("persistence")
		}
	}
}
