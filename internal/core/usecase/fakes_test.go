package usecase

import (
	"context"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

type embedderFake struct {
	vectors    map[string][]float32
	queryErr   error
	embedErr   error
	queries    []string
	embedCalls [][]string
}

func (f *embedderFake) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return []float32{0, 0, 1}
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls = append(f.embedCalls, append([]string(nil), texts...))
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, f.vectorFor(text))
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.vectorFor(text), nil
}

type indexFake struct {
	neighbors []domain.Neighbor
	err       error
	lastK     int
	calls     int
}

func (f *indexFake) Search(_ context.Context, _ []float32, k int) ([]domain.Neighbor, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.neighbors) {
		return f.neighbors[:k], nil
	}
	return f.neighbors, nil
}

func (f *indexFake) Count(context.Context) (int, error) {
	return len(f.neighbors), nil
}

type indexWriterFake struct {
	vectors [][]float32
	err     error
}

func (f *indexWriterFake) WriteVectors(_ context.Context, vectors [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.vectors = vectors
	return nil
}

type imageResolverFake struct {
	paths map[string]string
}

func (f imageResolverFake) Resolve(figure string) (string, bool) {
	path, ok := f.paths[figure]
	return path, ok
}

type observerFake struct {
	searchMode       domain.SearchMode
	searchHits       int
	searchSuppressed int
	searchErr        error
	searches         int
	locates          int
	locateFound      bool
}

func (f *observerFake) ObserveSearch(mode domain.SearchMode, hits, suppressed int, _ time.Duration, err error) {
	f.searches++
	f.searchMode = mode
	f.searchHits = hits
	f.searchSuppressed = suppressed
	f.searchErr = err
}

func (f *observerFake) ObserveLocate(found bool, _ time.Duration, _ error) {
	f.locates++
	f.locateFound = found
}
