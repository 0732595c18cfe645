package usecase

import (
	"context"

	"github.com/samber/lo"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

type FigureUseCase struct {
	records []domain.FigureRecord
	images  ports.ImageResolver
}

func NewFigureUseCase(records []domain.FigureRecord, images ports.ImageResolver) *FigureUseCase {
	return &FigureUseCase{
		records: records,
		images:  images,
	}
}

// FiguresFor filters on the raw subchapter string, without normalization, and
// drops records whose image cannot be found.
func (uc *FigureUseCase) FiguresFor(_ context.Context, subchapter string) ([]domain.Figure, error) {
	matching := lo.Filter(uc.records, func(record domain.FigureRecord, _ int) bool {
		return record.Subchapter == subchapter
	})
	figures := lo.FilterMap(matching, func(record domain.FigureRecord, _ int) (domain.Figure, bool) {
		path, ok := uc.images.Resolve(record.Figure)
		if !ok {
			return domain.Figure{}, false
		}
		return domain.Figure{
			Name:        record.Figure,
			Path:        path,
			Description: record.Description,
		}, true
	})
	return figures, nil
}
