package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/oncoassist/triage/internal/core/domain"
	"github.com/oncoassist/triage/internal/infrastructure/resilience"
)

func testClient(baseURL string) *Client {
	return New(Config{
		APIKey:     "test-key",
		BaseURL:    baseURL + "/v1",
		Dimensions: 3,
	}, resilience.NewExecutor(resilience.Config{BreakerEnabled: false}))
}

func TestEmbedTextReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["dimensions"] != float64(3) {
			t.Fatalf("expected dimensions 3, got %v", payload["dimensions"])
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(testClient(server.URL))
	vector, err := embedder.EmbedText(context.Background(), "hemoglobin 13.2")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vector))
	}
}

func TestEmbedTextMapsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	embedder := NewEmbedder(testClient(server.URL))
	_, err := embedder.EmbedText(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable, got %v", err)
	}
}

func TestClassifyTextParsesStrictJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		reply := `{"category":"blood_test","confidence":0.85,"reasoning":"numeric lab values"}`
		body := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	classifier := NewClassifier(testClient(server.URL))
	outcome, err := classifier.ClassifyText(context.Background(), "hb 13.2 wbc 6.1")
	if err != nil {
		t.Fatalf("ClassifyText() error = %v", err)
	}
	if !outcome.Parsed {
		t.Fatalf("expected parsed outcome, raw=%q", outcome.Raw)
	}
	if outcome.Signal.Category != domain.CategoryBloodTest {
		t.Fatalf("expected blood_test, got %s", outcome.Signal.Category)
	}
	if outcome.Signal.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", outcome.Signal.Confidence)
	}
	if outcome.Reasoning != "numeric lab values" {
		t.Fatalf("unexpected reasoning %q", outcome.Reasoning)
	}
}

func TestClassifyTextPromptIncludesSnippet(t *testing.T) {
	var capturedBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedBody = payload.Messages[len(payload.Messages)-1].Content
		reply := `{"category":"radiology","confidence":0.9}`
		_, _ = fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
	defer server.Close()

	classifier := NewClassifier(testClient(server.URL))
	if _, err := classifier.ClassifyText(context.Background(), "PET/CT staging scan"); err != nil {
		t.Fatalf("ClassifyText() error = %v", err)
	}
	if !strings.Contains(capturedBody, "PET/CT staging scan") {
		t.Fatalf("expected document text in prompt, got %q", capturedBody)
	}
}

func TestParseOutcomeDefaultsMissingConfidence(t *testing.T) {
	outcome, err := parseOutcome(`{"category":"medicine"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Signal.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %v", outcome.Signal.Confidence)
	}
}

func TestParseOutcomeMalformedPayloadKeepsRaw(t *testing.T) {
	raw := "I think this is probably an invoice"
	outcome, err := parseOutcome(raw)
	if !domain.IsKind(err, domain.ErrClassificationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if outcome.Parsed {
		t.Fatalf("expected unparsed outcome")
	}
	if outcome.Raw != raw {
		t.Fatalf("expected raw payload preserved, got %q", outcome.Raw)
	}
}

func TestParseOutcomeRejectsUnknownCategory(t *testing.T) {
	outcome, err := parseOutcome(`{"category":"dental","confidence":0.9}`)
	if !domain.IsKind(err, domain.ErrClassificationParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if outcome.Parsed {
		t.Fatalf("expected unparsed outcome")
	}
}

func TestParseOutcomeToleratesSurroundingText(t *testing.T) {
	outcome, err := parseOutcome("Here you go: {\"category\":\"invoice\",\"confidence\":0.7} hope that helps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Signal.Category != domain.CategoryInvoice {
		t.Fatalf("expected invoice, got %s", outcome.Signal.Category)
	}
}

func TestBuildClassificationPromptCutsOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("a", 3999) + "µL and further findings"

	prompt := buildClassificationPrompt(text)

	if !utf8.ValidString(prompt) {
		t.Fatalf("prompt contains invalid utf-8")
	}
	if !strings.HasSuffix(prompt, "a") {
		t.Fatalf("expected the split rune to be dropped, got suffix %q", prompt[len(prompt)-4:])
	}
}
