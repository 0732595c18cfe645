package ports

import (
	"context"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

// PassageRetriever is the inbound contract of the hybrid retrieval engine.
type PassageRetriever interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchHit, error)
}

// SubchapterLocator maps a free-text query to the single best figure subchapter.
type SubchapterLocator interface {
	Locate(ctx context.Context, query string) (string, bool, error)
}

// FigureCatalog lists the figures of a subchapter whose images exist on disk.
type FigureCatalog interface {
	FiguresFor(ctx context.Context, subchapter string) ([]domain.Figure, error)
}

// LessonMaterialService assembles grounded lesson context for the lesson composer.
type LessonMaterialService interface {
	Material(ctx context.Context, topic string) (*domain.LessonMaterial, error)
}
