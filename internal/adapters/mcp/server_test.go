package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

type retrieverFake struct {
	last domain.SearchRequest
	err  error
}

func (f *retrieverFake) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchHit, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchHit{{Title: "Cells", Chapter: "Ch1", Score: 0.12, Content: "Cells are..."}}, nil
}

type locatorFake struct{}

func (locatorFake) Locate(context.Context, string) (string, bool, error) {
	return "", false, nil
}

type catalogFake struct{}

func (catalogFake) FiguresFor(_ context.Context, subchapter string) ([]domain.Figure, error) {
	if subchapter != "Cells" {
		return nil, nil
	}
	return []domain.Figure{{Name: "Figure 1.1", Path: "images/Figure_1.1.png"}}, nil
}

type lessonFake struct{}

func (lessonFake) Material(_ context.Context, topic string) (*domain.LessonMaterial, error) {
	return &domain.LessonMaterial{Topic: topic, Title: "Cells", Grounded: true}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func newTools(retriever *retrieverFake) *Tools {
	return NewTools(retriever, locatorFake{}, catalogFake{}, lessonFake{})
}

func TestSearchTextbookTool(t *testing.T) {
	retriever := &retrieverFake{}
	result, err := newTools(retriever).searchTextbook(context.Background(), callRequest("search_textbook", map[string]any{
		"query": "cell",
		"top_k": 3,
		"mode":  "semantic",
	}))
	if err != nil {
		t.Fatalf("searchTextbook() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error %s", resultText(t, result))
	}
	if retriever.last.Query != "cell" || retriever.last.TopK != 3 || retriever.last.Mode != domain.SearchModeSemantic {
		t.Fatalf("unexpected request %+v", retriever.last)
	}
	if retriever.last.SimilarityThreshold != nil {
		t.Fatalf("omitted threshold must stay unset, got %v", *retriever.last.SimilarityThreshold)
	}

	if _, err := newTools(retriever).searchTextbook(context.Background(), callRequest("search_textbook", map[string]any{
		"query":                "cell",
		"similarity_threshold": 0.0,
	})); err != nil {
		t.Fatalf("searchTextbook() error = %v", err)
	}
	if retriever.last.SimilarityThreshold == nil || *retriever.last.SimilarityThreshold != 0 {
		t.Fatalf("expected explicit 0 threshold, got %+v", retriever.last)
	}

	var payload struct {
		Hits []domain.SearchHit `json:"hits"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(payload.Hits) != 1 || payload.Hits[0].Title != "Cells" {
		t.Fatalf("unexpected hits %+v", payload.Hits)
	}
}

func TestSearchTextbookToolReportsErrors(t *testing.T) {
	tools := newTools(&retrieverFake{err: domain.WrapError(domain.ErrTemporary, "embed", errors.New("down"))})

	result, err := tools.searchTextbook(context.Background(), callRequest("search_textbook", map[string]any{"query": "cell"}))
	if err != nil {
		t.Fatalf("searchTextbook() error = %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error result")
	}

	result, _ = tools.searchTextbook(context.Background(), callRequest("search_textbook", map[string]any{}))
	if !result.IsError {
		t.Fatalf("expected missing query to be a tool error")
	}

	result, _ = tools.searchTextbook(context.Background(), callRequest("search_textbook", map[string]any{"query": "cell", "mode": "fuzzy"}))
	if !result.IsError {
		t.Fatalf("expected unknown mode to be a tool error")
	}
}

func TestListFiguresTool(t *testing.T) {
	tools := newTools(&retrieverFake{})

	result, err := tools.listFigures(context.Background(), callRequest("list_figures", map[string]any{"subchapter": "cells"}))
	if err != nil {
		t.Fatalf("listFigures() error = %v", err)
	}
	if got := resultText(t, result); got != `{"figures":[],"subchapter":"cells"}` {
		t.Fatalf("unexpected result %s", got)
	}
}

func TestLocateAndLessonTools(t *testing.T) {
	tools := newTools(&retrieverFake{})

	result, _ := tools.locateSubchapter(context.Background(), callRequest("locate_subchapter", map[string]any{"query": "volcano"}))
	if got := resultText(t, result); got != `{"found":false,"subchapter":""}` {
		t.Fatalf("unexpected locate result %s", got)
	}

	result, _ = tools.lessonMaterial(context.Background(), callRequest("lesson_material", map[string]any{"topic": "cells"}))
	var material domain.LessonMaterial
	if err := json.Unmarshal([]byte(resultText(t, result)), &material); err != nil || !material.Grounded {
		t.Fatalf("unexpected material %+v err=%v", material, err)
	}
}

func TestNewServerBuilds(t *testing.T) {
	if newTools(&retrieverFake{}).NewServer() == nil {
		t.Fatalf("expected server")
	}
}
