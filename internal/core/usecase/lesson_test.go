package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

type retrieverFake struct {
	hits []domain.SearchHit
	err  error
	req  domain.SearchRequest
}

func (f *retrieverFake) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchHit, error) {
	f.req = req
	return f.hits, f.err
}

type locatorFake struct {
	name  string
	found bool
	err   error
	calls int
}

func (f *locatorFake) Locate(context.Context, string) (string, bool, error) {
	f.calls++
	return f.name, f.found, f.err
}

type catalogFake struct {
	figures    []domain.Figure
	subchapter string
}

func (f *catalogFake) FiguresFor(_ context.Context, subchapter string) ([]domain.Figure, error) {
	f.subchapter = subchapter
	return f.figures, nil
}

func TestLessonMaterialGrounded(t *testing.T) {
	retriever := &retrieverFake{hits: []domain.SearchHit{
		{Title: "2.1 Photosynthesis", Chapter: "Ch2", Content: "Plants use light (see Figure 2.1) to make sugar."},
		{Title: "Leaves", Chapter: "Ch2", Content: "figure_3 Leaves are green."},
	}}
	locator := &locatorFake{name: "Photosynthesis", found: true}
	catalog := &catalogFake{figures: []domain.Figure{{Name: "Figure 2.1", Path: "images/Figure_2.1.png"}}}
	uc := NewLessonUseCase(retriever, locator, catalog, 3)

	material, err := uc.Material(context.Background(), " photosynthesis ")
	if err != nil {
		t.Fatalf("Material() error = %v", err)
	}
	if !material.Grounded || material.Title != "Photosynthesis" || material.Topic != "photosynthesis" {
		t.Fatalf("unexpected material %+v", material)
	}
	if retriever.req.TopK != 3 || retriever.req.Mode != domain.SearchModeHybrid {
		t.Fatalf("unexpected search request %+v", retriever.req)
	}
	if material.Passages[0].Content != "Plants use light (see ) to make sugar." {
		t.Fatalf("unexpected cleaned content %q", material.Passages[0].Content)
	}
	if material.Passages[1].Content != "Leaves are green." {
		t.Fatalf("unexpected cleaned content %q", material.Passages[1].Content)
	}
	if material.Subchapter != "Photosynthesis" || catalog.subchapter != "Photosynthesis" || len(material.Figures) != 1 {
		t.Fatalf("unexpected figures %+v", material)
	}
}

func TestLessonMaterialUngroundedSkipsFigures(t *testing.T) {
	locator := &locatorFake{name: "Cells", found: true}
	uc := NewLessonUseCase(&retrieverFake{}, locator, &catalogFake{}, 0)

	material, err := uc.Material(context.Background(), "football")
	if err != nil {
		t.Fatalf("Material() error = %v", err)
	}
	if material.Grounded || material.Title != "football" || len(material.Passages) != 0 || len(material.Figures) != 0 {
		t.Fatalf("unexpected material %+v", material)
	}
	if locator.calls != 0 {
		t.Fatalf("ungrounded topic must not locate figures")
	}
}

func TestLessonMaterialSubchapterNotFound(t *testing.T) {
	retriever := &retrieverFake{hits: []domain.SearchHit{{Title: "Cells", Chapter: "Ch1", Content: "Cells are..."}}}
	catalog := &catalogFake{}
	uc := NewLessonUseCase(retriever, &locatorFake{}, catalog, 5)

	material, err := uc.Material(context.Background(), "cells")
	if err != nil {
		t.Fatalf("Material() error = %v", err)
	}
	if material.Subchapter != "" || catalog.subchapter != "" || material.Figures == nil {
		t.Fatalf("unexpected material %+v", material)
	}
}

func TestLessonMaterialErrors(t *testing.T) {
	uc := NewLessonUseCase(&retrieverFake{}, &locatorFake{}, &catalogFake{}, 5)
	if _, err := uc.Material(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	sentinel := errors.New("search failed")
	uc = NewLessonUseCase(&retrieverFake{err: sentinel}, &locatorFake{}, &catalogFake{}, 5)
	if _, err := uc.Material(context.Background(), "cells"); !errors.Is(err, sentinel) {
		t.Fatalf("expected search error, got %v", err)
	}
}

func TestCleanSectionTitle(t *testing.T) {
	cases := map[string]string{
		"1.2.3 Cell Walls": "Cell Walls",
		"4 Energy":         "Energy",
		"Cells":            "Cells",
		"2023":             "2023",
	}
	for in, want := range cases {
		if got := CleanSectionTitle(in); got != want {
			t.Fatalf("CleanSectionTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
