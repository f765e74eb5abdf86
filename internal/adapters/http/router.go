package httpadapter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/core/ports"
	"github.com/oncoassist/triage/internal/infrastructure/report/xlsx"
	"github.com/oncoassist/triage/internal/observability/metrics"
)

type Router struct {
	classifier ports.DocumentClassifier
	similar    ports.SimilarCaseFinder
	results    ports.ResultReader
	queue      ports.MessageQueue
	storage    ports.ObjectStorage
	summaryXLS *xlsx.Writer
	metrics    *metrics.HTTPServerMetrics
}

func NewRouter(
	classifier ports.DocumentClassifier,
	similar ports.SimilarCaseFinder,
	results ports.ResultReader,
	queue ports.MessageQueue,
	storage ports.ObjectStorage,
	summaryXLS *xlsx.Writer,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		classifier: classifier,
		similar:    similar,
		results:    results,
		queue:      queue,
		storage:    storage,
		summaryXLS: summaryXLS,
		metrics:    httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/classify", rt.classifyDocument)
	mux.HandleFunc("/v1/reports", rt.submitReport)
	mux.HandleFunc("/v1/similar", rt.findSimilar)
	mux.HandleFunc("/v1/results/", rt.getResultByID)
	mux.HandleFunc("/v1/reports/summary.xlsx", rt.downloadSummary)

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ID         string `json:"id"`
		Text       string `json:"text"`
		Source     string `json:"source"`
		PatientRef string `json:"patient_ref"`
		Subject    string `json:"subject"`
		Sender     string `json:"sender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.classifier.Classify(r.Context(), domain.Document{
		ID:         req.ID,
		Text:       req.Text,
		Source:     req.Source,
		PatientRef: req.PatientRef,
		Subject:    req.Subject,
		Sender:     req.Sender,
		ReceivedAt: time.Now().UTC(),
	})
	// A classification that could not be stored is still a valid
	// answer; the evidence carries the persistence note.
	if result != nil {
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

// submitReport is the asynchronous entry point: the report is stored
// and queued, and a worker classifies it later.
func (rt *Router) submitReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		ContentBase64 string `json:"content_base64"`
		Filename      string `json:"filename"`
		Source        string `json:"source"`
		PatientRef    string `json:"patient_ref"`
		Subject       string `json:"subject"`
		Sender        string `json:"sender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.ContentBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text or content_base64 is required"})
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	event := domain.ReportReceived{
		DocumentID: id,
		Text:       req.Text,
		Source:     req.Source,
		PatientRef: req.PatientRef,
		Subject:    req.Subject,
		Sender:     req.Sender,
		ReceivedAt: time.Now().UTC(),
	}

	if req.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid content_base64"})
			return
		}
		filename := req.Filename
		if filename == "" {
			filename = "report.pdf"
		}
		key := path.Join("reports", id, filename)
		if err := rt.storage.Save(r.Context(), key, bytes.NewReader(data)); err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
		event.StorageKey = key
	}

	if err := rt.queue.PublishReportReceived(r.Context(), event); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "queued"})
}

func (rt *Router) findSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Text       string `json:"text"`
		Category   string `json:"category"`
		PatientRef string `json:"patient_ref"`
		Limit      int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	filter := domain.SearchFilter{PatientRef: req.PatientRef}
	if req.Category != "" {
		category, err := domain.ParseCategory(req.Category)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		filter.Category = category
	}

	cases, err := rt.similar.FindSimilar(r.Context(), req.Text, filter, req.Limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"similar_cases": cases})
}

func (rt *Router) getResultByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/results/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	result, err := rt.results.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) downloadSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	summary, err := rt.results.Summary(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="classification-summary.xlsx"`)
	if err := rt.summaryXLS.WriteSummary(w, summary); err != nil {
		// Headers are already out; the truncated body is all we can
		// signal with.
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
