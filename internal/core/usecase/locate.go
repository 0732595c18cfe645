package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

type LocateUseCase struct {
	embedder    ports.Embedder
	index       ports.VectorIndex
	subchapters domain.SubchapterMap
	observer    ports.RetrievalObserver
}

func NewLocateUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	subchapters domain.SubchapterMap,
) *LocateUseCase {
	return &LocateUseCase{
		embedder:    embedder,
		index:       index,
		subchapters: subchapters,
	}
}

func (uc *LocateUseCase) WithObserver(observer ports.RetrievalObserver) *LocateUseCase {
	uc.observer = observer
	return uc
}

// Locate maps the query to the subchapter owning the single nearest slot of
// the figures index. There is no threshold: any mapped nearest slot wins.
func (uc *LocateUseCase) Locate(ctx context.Context, query string) (string, bool, error) {
	started := time.Now()
	name, found, err := uc.locate(ctx, query)
	if uc.observer != nil {
		uc.observer.ObserveLocate(found, time.Since(started), err)
	}
	return name, found, err
}

func (uc *LocateUseCase) locate(ctx context.Context, query string) (string, bool, error) {
	if strings.TrimSpace(query) == "" {
		return "", false, domain.WrapError(domain.ErrInvalidInput, "locate subchapter", errors.New("query is required"))
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := uc.index.Search(ctx, queryVector, 1)
	if err != nil {
		return "", false, fmt.Errorf("search figures index: %w", err)
	}
	if len(neighbors) == 0 {
		return "", false, nil
	}

	name, ok := uc.subchapters.Name(neighbors[0].Slot)
	if !ok {
		return "", false, nil
	}
	return name, true, nil
}
