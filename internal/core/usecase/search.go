package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

type SearchUseCase struct {
	corpus   *domain.Corpus
	embedder ports.Embedder
	index    ports.VectorIndex
	defaults domain.SearchDefaults
	observer ports.RetrievalObserver
}

func NewSearchUseCase(
	corpus *domain.Corpus,
	embedder ports.Embedder,
	index ports.VectorIndex,
	defaults domain.SearchDefaults,
) *SearchUseCase {
	return &SearchUseCase{
		corpus:   corpus,
		embedder: embedder,
		index:    index,
		defaults: defaults.Normalize(),
	}
}

// WithObserver attaches a retrieval observer. It must be called before the
// use case starts serving.
func (uc *SearchUseCase) WithObserver(observer ports.RetrievalObserver) *SearchUseCase {
	uc.observer = observer
	return uc
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchHit, error) {
	started := time.Now()
	req = uc.defaults.Apply(req)

	var (
		hits       []domain.SearchHit
		suppressed int
		err        error
	)
	switch {
	case strings.TrimSpace(req.Query) == "":
		err = domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	default:
		hits, suppressed, err = uc.dispatch(ctx, req)
	}

	if uc.observer != nil {
		uc.observer.ObserveSearch(req.Mode, len(hits), suppressed, time.Since(started), err)
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (uc *SearchUseCase) dispatch(ctx context.Context, req domain.SearchRequest) ([]domain.SearchHit, int, error) {
	switch req.Mode {
	case domain.SearchModeExact:
		return uc.exactStage(req.Query), 0, nil
	case domain.SearchModeSemantic:
		return uc.semanticStage(ctx, req)
	case domain.SearchModeHybrid:
		// Hybrid never merges: the semantic stage runs only when exact found nothing.
		if hits := uc.exactStage(req.Query); len(hits) > 0 {
			return hits, 0, nil
		}
		return uc.semanticStage(ctx, req)
	default:
		return nil, 0, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unknown mode %q", req.Mode))
	}
}

// exactStage returns the first title entry, in slot order, whose normalized
// title contains the normalized query and whose content resolves. This is a
// first-match policy: a later, shorter or closer title never wins.
func (uc *SearchUseCase) exactStage(query string) []domain.SearchHit {
	needle := domain.NormalizeTitle(query)
	for _, entry := range uc.corpus.Entries() {
		if !strings.Contains(entry.Normalized, needle) {
			continue
		}
		passage, ok := uc.corpus.Resolve(entry)
		if !ok {
			continue
		}
		return []domain.SearchHit{{
			Title:   entry.Title,
			Chapter: entry.Chapter,
			Score:   0,
			Content: passage.Content,
		}}
	}
	return []domain.SearchHit{}
}

// semanticStage returns the accepted hits and the number of candidates
// suppressed as near-duplicates.
func (uc *SearchUseCase) semanticStage(ctx context.Context, req domain.SearchRequest) ([]domain.SearchHit, int, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, 0, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := uc.index.Search(ctx, queryVector, req.TopK)
	if err != nil {
		return nil, 0, fmt.Errorf("search text index: %w", err)
	}

	candidates := uc.collectCandidates(neighbors)
	if len(candidates) == 0 {
		return []domain.SearchHit{}, 0, nil
	}

	contents := make([]string, 0, len(candidates))
	for _, c := range candidates {
		contents = append(contents, c.Content)
	}
	contentVectors, err := uc.embedder.Embed(ctx, contents)
	if err != nil {
		return nil, 0, fmt.Errorf("embed candidate contents: %w", err)
	}
	if len(contentVectors) != len(candidates) {
		return nil, 0, fmt.Errorf("embed candidate contents: expected %d vectors, got %d", len(candidates), len(contentVectors))
	}

	hits := make([]domain.SearchHit, 0, len(candidates))
	accepted := make([][]float32, 0, len(candidates))
	suppressed := 0
	threshold := req.Threshold()
	for i, c := range candidates {
		if isNearDuplicate(contentVectors[i], accepted, threshold) {
			suppressed++
			continue
		}
		accepted = append(accepted, contentVectors[i])
		hits = append(hits, c)
	}
	return hits, suppressed, nil
}

// collectCandidates resolves neighbours to passages in index order. A key seen
// earlier in the same call is skipped: if the earlier occurrence was accepted
// the key is already returned, and if it was suppressed the identical content
// would be suppressed again.
func (uc *SearchUseCase) collectCandidates(neighbors []domain.Neighbor) []domain.SearchHit {
	seen := make(map[domain.PassageKey]struct{}, len(neighbors))
	out := make([]domain.SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		entry, ok := uc.corpus.Entry(n.Slot)
		if !ok {
			continue
		}
		key := entry.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		passage, ok := uc.corpus.Resolve(entry)
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.SearchHit{
			Title:   entry.Title,
			Chapter: entry.Chapter,
			Score:   n.Distance,
			Content: passage.Content,
		})
	}
	return out
}

// isNearDuplicate compares only against earlier accepted vectors.
func isNearDuplicate(vector []float32, accepted [][]float32, threshold float64) bool {
	for _, prev := range accepted {
		if cosineSimilarity(vector, prev) >= threshold {
			return true
		}
	}
	return false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
