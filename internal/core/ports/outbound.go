package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

// Embedder maps text to dense vectors. It must be the same model that built
// the indices it is searched against.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex searches vectors addressed by slot. Distances are cosine
// derived, lower is closer, and results are ordered nearest first.
type VectorIndex interface {
	Search(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error)
	Count(ctx context.Context) (int, error)
}

// VectorIndexWriter persists one vector per slot, in order.
type VectorIndexWriter interface {
	WriteVectors(ctx context.Context, vectors [][]float32) error
}

// ObjectStorage stores build artefacts under flat keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageResolver finds the on-disk image of a figure.
type ImageResolver interface {
	Resolve(figure string) (string, bool)
}

// RetrievalObserver receives per-call retrieval outcomes, typically for metrics.
type RetrievalObserver interface {
	ObserveSearch(mode domain.SearchMode, hits, suppressed int, duration time.Duration, err error)
	ObserveLocate(found bool, duration time.Duration, err error)
}
