package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
	"github.com/kirillkom/textbook-tutor/internal/core/usecase"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/corpus"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/storage/localfs"
)

// Options carries the per-binary observability hooks.
type Options struct {
	Observer             ports.RetrievalObserver
	OnBreakerStateChange func(operation, from, to string)
}

// App holds the read-only retrieval state shared by every request.
type App struct {
	Config config.Config

	Corpus   *domain.Corpus
	Embedder ports.Embedder
	SearchUC *usecase.SearchUseCase
	LocateUC *usecase.LocateUseCase
	FigureUC *usecase.FigureUseCase
	LessonUC *usecase.LessonUseCase

	executor *resilience.Executor
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	mode, err := domain.ParseSearchMode(cfg.SearchMode)
	if err != nil {
		return nil, fmt.Errorf("search mode: %w", err)
	}

	textCorpus, err := corpus.LoadCorpus(cfg.KnowledgePath, cfg.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	figureRecords, err := corpus.LoadFigures(cfg.FiguresPath)
	if err != nil {
		return nil, err
	}
	subchapters, err := corpus.LoadSubchapterMap(cfg.SubchapterMetadataPath)
	if err != nil {
		return nil, err
	}
	images, err := localfs.NewImageDir(cfg.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("init image dir: %w", err)
	}

	executor := NewExecutor(cfg, opts.OnBreakerStateChange)
	embedder := NewEmbedder(cfg, executor)

	textIndex, err := OpenVectorIndex(ctx, cfg, TextIndex, executor)
	if err != nil {
		return nil, fmt.Errorf("open text index: %w", err)
	}
	figuresIndex, err := OpenVectorIndex(ctx, cfg, FiguresIndex, executor)
	if err != nil {
		return nil, fmt.Errorf("open figures index: %w", err)
	}

	if err := checkTextIndex(ctx, textCorpus, textIndex); err != nil {
		return nil, err
	}
	if err := checkSubchapterSlots(ctx, subchapters, figuresIndex); err != nil {
		return nil, err
	}

	defaults := domain.SearchDefaults{
		TopK:                cfg.SearchTopK,
		SimilarityThreshold: cfg.SearchSimilarityThreshold,
		Mode:                mode,
	}
	searchUC := usecase.NewSearchUseCase(textCorpus, embedder, textIndex, defaults)
	locateUC := usecase.NewLocateUseCase(embedder, figuresIndex, subchapters)
	if opts.Observer != nil {
		searchUC.WithObserver(opts.Observer)
		locateUC.WithObserver(opts.Observer)
	}
	figureUC := usecase.NewFigureUseCase(figureRecords, images)
	lessonUC := usecase.NewLessonUseCase(searchUC, locateUC, figureUC, cfg.LessonTopK)

	slog.Info("retrieval_ready",
		"vector_backend", cfg.VectorBackend,
		"titles", textCorpus.Len(),
		"figures", len(figureRecords),
		"subchapters", subchapters.Len(),
		"search_mode", string(mode),
	)

	return &App{
		Config:   cfg,
		Corpus:   textCorpus,
		Embedder: embedder,
		SearchUC: searchUC,
		LocateUC: locateUC,
		FigureUC: figureUC,
		LessonUC: lessonUC,
		executor: executor,
	}, nil
}

// DependencyStates reports the circuit breaker state per outbound operation.
func (a *App) DependencyStates() []resilience.OperationState {
	if a == nil || a.executor == nil {
		return []resilience.OperationState{}
	}
	return a.executor.States()
}

// checkTextIndex enforces that metadata entry i owns vector slot i.
func checkTextIndex(ctx context.Context, textCorpus *domain.Corpus, index ports.VectorIndex) error {
	count, err := index.Count(ctx)
	if err != nil {
		return fmt.Errorf("count text index: %w", err)
	}
	if count != textCorpus.Len() {
		return domain.WrapError(
			domain.ErrCorpusMismatch,
			"check text index",
			fmt.Errorf("metadata has %d titles but text index has %d vectors", textCorpus.Len(), count),
		)
	}
	return nil
}

func checkSubchapterSlots(ctx context.Context, subchapters domain.SubchapterMap, index ports.VectorIndex) error {
	count, err := index.Count(ctx)
	if err != nil {
		return fmt.Errorf("count figures index: %w", err)
	}
	for _, slot := range subchapters.Slots() {
		if slot >= count {
			name, _ := subchapters.Name(slot)
			slog.Warn("subchapter_slot_out_of_range", "slot", slot, "subchapter", name, "index_size", count)
		}
	}
	return nil
}
