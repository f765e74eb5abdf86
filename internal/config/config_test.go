package config

import (
	"testing"
	"time"
)

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("NEIGHBOR_TOP_K", "")
	t.Setenv("EMBED_DIMENSIONS", "")
	t.Setenv("OPENAI_EMBED_MODEL", "")
	t.Setenv("SEMANTIC_TIMEOUT", "")
	t.Setenv("RETRY_JITTER", "")

	cfg := Load()
	if cfg.NeighborTopK != 5 {
		t.Fatalf("expected default neighbor top k 5, got %d", cfg.NeighborTopK)
	}
	if cfg.EmbedDimensions != 1536 {
		t.Fatalf("expected default embed dimensions 1536, got %d", cfg.EmbedDimensions)
	}
	if cfg.OpenAIEmbedModel != "text-embedding-3-small" {
		t.Fatalf("expected default embed model, got %q", cfg.OpenAIEmbedModel)
	}
	if cfg.SemanticTimeout != 30*time.Second {
		t.Fatalf("expected default semantic timeout 30s, got %v", cfg.SemanticTimeout)
	}
	if cfg.RetryJitter != 0.2 {
		t.Fatalf("expected default retry jitter 0.2, got %v", cfg.RetryJitter)
	}
}

func TestLoadParsesPipelineOverrides(t *testing.T) {
	t.Setenv("NEIGHBOR_TOP_K", "8")
	t.Setenv("SEMANTIC_TIMEOUT", "45s")
	t.Setenv("OPENAI_RPS", "2.5")
	t.Setenv("BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.NeighborTopK != 8 {
		t.Fatalf("expected neighbor top k 8, got %d", cfg.NeighborTopK)
	}
	if cfg.SemanticTimeout != 45*time.Second {
		t.Fatalf("expected semantic timeout 45s, got %v", cfg.SemanticTimeout)
	}
	if cfg.OpenAIRPS != 2.5 {
		t.Fatalf("expected openai rps 2.5, got %v", cfg.OpenAIRPS)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("NEIGHBOR_TOP_K", "not-a-number")
	t.Setenv("SEMANTIC_TIMEOUT", "soon")

	cfg := Load()
	if cfg.NeighborTopK != 5 {
		t.Fatalf("expected fallback neighbor top k 5, got %d", cfg.NeighborTopK)
	}
	if cfg.SemanticTimeout != 30*time.Second {
		t.Fatalf("expected fallback semantic timeout 30s, got %v", cfg.SemanticTimeout)
	}
}
