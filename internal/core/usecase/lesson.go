package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

var (
	figureMentionPattern = regexp.MustCompile(`(?i)Figure[\s_]*\d+(?:\.\d+)?`)
	sectionNumberPattern = regexp.MustCompile(`^\d+(?:\.\d+)*\s*`)
	extraSpacesPattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// LessonUseCase gathers everything the lesson composer grounds a lesson in.
// It produces no prompt text.
type LessonUseCase struct {
	retriever ports.PassageRetriever
	locator   ports.SubchapterLocator
	figures   ports.FigureCatalog
	topK      int
}

func NewLessonUseCase(
	retriever ports.PassageRetriever,
	locator ports.SubchapterLocator,
	figures ports.FigureCatalog,
	topK int,
) *LessonUseCase {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &LessonUseCase{
		retriever: retriever,
		locator:   locator,
		figures:   figures,
		topK:      topK,
	}
}

func (uc *LessonUseCase) Material(ctx context.Context, topic string) (*domain.LessonMaterial, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "lesson material", errors.New("topic is required"))
	}

	hits, err := uc.retriever.Search(ctx, domain.SearchRequest{
		Query: topic,
		TopK:  uc.topK,
		Mode:  domain.SearchModeHybrid,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}

	material := &domain.LessonMaterial{
		Topic:    topic,
		Title:    topic,
		Passages: make([]domain.SearchHit, 0, len(hits)),
		Figures:  []domain.Figure{},
	}
	if len(hits) == 0 {
		return material, nil
	}

	material.Grounded = true
	material.Title = CleanSectionTitle(hits[0].Title)
	for _, hit := range hits {
		hit.Content = StripFigureMentions(hit.Content)
		material.Passages = append(material.Passages, hit)
	}

	subchapter, found, err := uc.locator.Locate(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("locate subchapter: %w", err)
	}
	if !found {
		return material, nil
	}
	material.Subchapter = subchapter

	figures, err := uc.figures.FiguresFor(ctx, subchapter)
	if err != nil {
		return nil, fmt.Errorf("list figures: %w", err)
	}
	if figures != nil {
		material.Figures = figures
	}
	return material, nil
}

// StripFigureMentions removes textual references such as "Figure 1.3" or
// "figure_2" so the composer does not cite figures it cannot show.
func StripFigureMentions(text string) string {
	stripped := figureMentionPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(extraSpacesPattern.ReplaceAllString(stripped, " "))
}

// CleanSectionTitle drops leading section numbering like "1.2.3 ".
func CleanSectionTitle(title string) string {
	cleaned := strings.TrimSpace(sectionNumberPattern.ReplaceAllString(strings.TrimSpace(title), ""))
	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}
