package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/vector/flat"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/vector/qdrant"
)

// IndexKind selects the passage-title index or the subchapter index.
type IndexKind int

const (
	TextIndex IndexKind = iota
	FiguresIndex
)

func (k IndexKind) String() string {
	if k == FiguresIndex {
		return "figures"
	}
	return "text"
}

// NewExecutor builds the shared breaker for the embedder and Qdrant calls.
func NewExecutor(cfg config.Config, onStateChange func(operation, from, to string)) *resilience.Executor {
	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = cfg.EmbedRetryMaxAttempts
	policy.BreakerEnabled = cfg.EmbedBreakerEnabled
	policy.OnStateChange = onStateChange
	return resilience.NewExecutor(policy)
}

func NewEmbedder(cfg config.Config, executor *resilience.Executor) *ollama.Embedder {
	client := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, time.Duration(cfg.EmbedTimeoutSeconds)*time.Second)
	return ollama.NewEmbedder(client, executor)
}

func OpenVectorIndex(ctx context.Context, cfg config.Config, kind IndexKind, executor *resilience.Executor) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendFlat:
		path := flatIndexPath(cfg, kind)
		storage, err := localfs.New(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("init %s index storage: %w", kind, err)
		}
		index, err := flat.Open(ctx, storage, filepath.Base(path))
		if err != nil {
			return nil, err
		}
		return index, nil
	case config.VectorBackendQdrant:
		return qdrant.New(cfg.QdrantURL, qdrantCollection(cfg, kind), executor), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// NewIndexWriter returns the sink the offline builder writes kind's vectors to.
func NewIndexWriter(cfg config.Config, kind IndexKind, executor *resilience.Executor) (ports.VectorIndexWriter, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendFlat:
		path := flatIndexPath(cfg, kind)
		storage, err := localfs.New(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("init %s index storage: %w", kind, err)
		}
		return flat.NewWriter(storage, filepath.Base(path)), nil
	case config.VectorBackendQdrant:
		return qdrant.New(cfg.QdrantURL, qdrantCollection(cfg, kind), executor), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func flatIndexPath(cfg config.Config, kind IndexKind) string {
	if kind == FiguresIndex {
		return cfg.FiguresIndexPath
	}
	return cfg.TextIndexPath
}

func qdrantCollection(cfg config.Config, kind IndexKind) string {
	if kind == FiguresIndex {
		return cfg.QdrantFiguresCollection
	}
	return cfg.QdrantTextCollection
}
