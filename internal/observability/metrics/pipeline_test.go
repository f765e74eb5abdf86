package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/oncoassist/triage/internal/core/domain"
)

func TestRecordDegradedSignalIncrementsCounter(t *testing.T) {
	m := NewPipelineMetrics("test")

	m.RecordDegradedSignal("semantic")
	m.RecordDegradedSignal("semantic")
	m.RecordDegradedSignal("")

	if got := testutil.ToFloat64(m.degradedSignalsTotal.WithLabelValues("semantic")); got != 2 {
		t.Fatalf("expected semantic count 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.degradedSignalsTotal.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty signal to count as unknown, got %v", got)
	}
}

func TestFinishClassificationCountsByCategoryAndStatus(t *testing.T) {
	m := NewPipelineMetrics("test")

	m.StartClassification()
	m.FinishClassification(&domain.ClassificationResult{Category: domain.CategoryInvoice}, 10*time.Millisecond, nil)
	m.StartClassification()
	m.FinishClassification(nil, time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.classificationTotal.WithLabelValues("invoice", "success")); got != 1 {
		t.Fatalf("expected one invoice success, got %v", got)
	}
	if got := testutil.ToFloat64(m.classificationTotal.WithLabelValues("none", "error")); got != 1 {
		t.Fatalf("expected one error with category none, got %v", got)
	}
	if got := testutil.ToFloat64(m.classificationInFlight); got != 0 {
		t.Fatalf("in-flight gauge must return to zero, got %v", got)
	}
}
