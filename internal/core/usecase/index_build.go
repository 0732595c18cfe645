package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

const defaultEmbedBatchSize = 32

// IndexBuildUseCase produces vector indices whose slot order is derived from
// the same sequence as the metadata it returns, so positional coupling holds
// by construction.
type IndexBuildUseCase struct {
	embedder  ports.Embedder
	batchSize int
}

func NewIndexBuildUseCase(embedder ports.Embedder, batchSize int) *IndexBuildUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &IndexBuildUseCase{
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// BuildText embeds every knowledge title in document order and writes one
// vector per metadata record.
func (uc *IndexBuildUseCase) BuildText(
	ctx context.Context,
	kb domain.KnowledgeBase,
	writer ports.VectorIndexWriter,
) ([]domain.MetadataRecord, error) {
	metadata := domain.MetadataFromKnowledge(kb)
	if len(metadata) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build text index", errors.New("knowledge base has no titles"))
	}

	titles := lo.Map(metadata, func(record domain.MetadataRecord, _ int) string {
		return record.Title
	})
	vectors, err := uc.embedBatches(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("embed titles: %w", err)
	}
	if err := writer.WriteVectors(ctx, vectors); err != nil {
		return nil, fmt.Errorf("write text index: %w", err)
	}

	slog.Info("text_index_built", "titles", len(metadata), "batch_size", uc.batchSize)
	return metadata, nil
}

// BuildFigures embeds the distinct subchapters of the figure records, in
// first-appearance order, and returns the slot to subchapter map.
func (uc *IndexBuildUseCase) BuildFigures(
	ctx context.Context,
	records []domain.FigureRecord,
	writer ports.VectorIndexWriter,
) (domain.SubchapterMap, error) {
	subchapters := lo.Uniq(lo.FilterMap(records, func(record domain.FigureRecord, _ int) (string, bool) {
		return record.Subchapter, record.Subchapter != ""
	}))
	if len(subchapters) == 0 {
		return domain.SubchapterMap{}, domain.WrapError(domain.ErrInvalidInput, "build figures index", errors.New("figures have no subchapters"))
	}

	vectors, err := uc.embedBatches(ctx, subchapters)
	if err != nil {
		return domain.SubchapterMap{}, fmt.Errorf("embed subchapters: %w", err)
	}
	if err := writer.WriteVectors(ctx, vectors); err != nil {
		return domain.SubchapterMap{}, fmt.Errorf("write figures index: %w", err)
	}

	names := make(map[int]string, len(subchapters))
	for slot, name := range subchapters {
		names[slot] = name
	}

	slog.Info("figures_index_built", "subchapters", len(subchapters), "figures", len(records))
	return domain.NewSubchapterMap(names), nil
}

func (uc *IndexBuildUseCase) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, batch := range lo.Chunk(texts, uc.batchSize) {
		vectors, err := uc.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("batch %d: expected %d vectors, got %d", i, len(batch), len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
