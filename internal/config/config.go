package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort           string
	APIMaxConnections int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWaitMS    int
	LogLevel          string

	KnowledgePath          string
	MetadataPath           string
	TextIndexPath          string
	FiguresPath            string
	FiguresIndexPath       string
	SubchapterMetadataPath string
	ImageDir               string

	VectorBackend           string
	QdrantURL               string
	QdrantTextCollection    string
	QdrantFiguresCollection string

	OllamaURL             string
	OllamaEmbedModel      string
	EmbedBatchSize        int
	EmbedTimeoutSeconds   int
	EmbedRetryMaxAttempts int
	EmbedBreakerEnabled   bool

	SearchTopK                int
	SearchSimilarityThreshold float64
	SearchMode                string
	LessonTopK                int

	NATSURL           string
	NATSSubjectPrefix string
	NATSQueueGroup    string

	WorkerMetricsPort string
}

const (
	VectorBackendFlat   = "flat"
	VectorBackendQdrant = "qdrant"
)

func Load() Config {
	return Config{
		APIPort:           mustEnv("API_PORT", "8080"),
		APIMaxConnections: mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 64),
		APIQueueWaitMS:    mustEnvInt("API_QUEUE_WAIT_MS", 250),
		LogLevel:          mustEnv("LOG_LEVEL", "info"),

		KnowledgePath:          mustEnv("KNOWLEDGE_PATH", "knowledgebase.json"),
		MetadataPath:           mustEnv("METADATA_PATH", "metadata.json"),
		TextIndexPath:          mustEnv("TEXT_INDEX_PATH", "textbook.index"),
		FiguresPath:            mustEnv("FIGURES_PATH", "output.json"),
		FiguresIndexPath:       mustEnv("FIGURES_INDEX_PATH", "subchapter.index"),
		SubchapterMetadataPath: mustEnv("SUBCHAPTER_METADATA_PATH", "subchapter_metadata.json"),
		ImageDir:               mustEnv("IMAGE_DIR", "images"),

		VectorBackend:           mustEnv("VECTOR_BACKEND", VectorBackendFlat),
		QdrantURL:               mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantTextCollection:    mustEnv("QDRANT_TEXT_COLLECTION", "textbook_titles"),
		QdrantFiguresCollection: mustEnv("QDRANT_FIGURES_COLLECTION", "subchapter_titles"),

		OllamaURL:             mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel:      mustEnv("OLLAMA_EMBED_MODEL", "all-minilm"),
		EmbedBatchSize:        mustEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedTimeoutSeconds:   mustEnvInt("EMBED_TIMEOUT_SECONDS", 60),
		EmbedRetryMaxAttempts: mustEnvInt("EMBED_RETRY_MAX_ATTEMPTS", 1),
		EmbedBreakerEnabled:   mustEnvBool("EMBED_BREAKER_ENABLED", true),

		SearchTopK:                mustEnvInt("SEARCH_TOP_K", 5),
		SearchSimilarityThreshold: mustEnvFloat("SEARCH_SIMILARITY_THRESHOLD", 0.98),
		SearchMode:                mustEnv("SEARCH_MODE", "hybrid"),
		LessonTopK:                mustEnvInt("LESSON_TOP_K", 5),

		NATSURL:           mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubjectPrefix: mustEnv("NATS_SUBJECT_PREFIX", "tutor"),
		NATSQueueGroup:    mustEnv("NATS_QUEUE_GROUP", "retrieval"),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
