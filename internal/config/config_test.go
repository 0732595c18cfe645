package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("SEARCH_SIMILARITY_THRESHOLD", "")
	t.Setenv("SEARCH_MODE", "")
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("EMBED_RETRY_MAX_ATTEMPTS", "")

	cfg := Load()
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.SearchSimilarityThreshold != 0.98 {
		t.Fatalf("expected default threshold 0.98, got %v", cfg.SearchSimilarityThreshold)
	}
	if cfg.SearchMode != "hybrid" {
		t.Fatalf("expected default mode hybrid, got %q", cfg.SearchMode)
	}
	if cfg.VectorBackend != VectorBackendFlat {
		t.Fatalf("expected flat backend, got %q", cfg.VectorBackend)
	}
	if cfg.EmbedRetryMaxAttempts != 1 {
		t.Fatalf("expected single embed attempt, got %d", cfg.EmbedRetryMaxAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("SEARCH_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("EMBED_BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.SearchTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.SearchTopK)
	}
	if cfg.SearchSimilarityThreshold != 0.9 {
		t.Fatalf("expected threshold 0.9, got %v", cfg.SearchSimilarityThreshold)
	}
	if cfg.VectorBackend != VectorBackendQdrant {
		t.Fatalf("expected qdrant backend, got %q", cfg.VectorBackend)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.EmbedBreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "many")
	t.Setenv("SEARCH_SIMILARITY_THRESHOLD", "high")

	cfg := Load()
	if cfg.SearchTopK != 5 || cfg.SearchSimilarityThreshold != 0.98 {
		t.Fatalf("expected fallbacks, got top_k=%d threshold=%v", cfg.SearchTopK, cfg.SearchSimilarityThreshold)
	}
}
