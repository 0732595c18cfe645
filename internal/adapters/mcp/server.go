package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
)

const (
	serverName    = "textbook-tutor"
	serverVersion = "1.0.0"
)

// Tools exposes retrieval to agent runtimes. Tool failures are reported as
// error results so the agent can react; only encoding problems return errors.
type Tools struct {
	retriever ports.PassageRetriever
	locator   ports.SubchapterLocator
	figures   ports.FigureCatalog
	lessons   ports.LessonMaterialService
}

func NewTools(
	retriever ports.PassageRetriever,
	locator ports.SubchapterLocator,
	figures ports.FigureCatalog,
	lessons ports.LessonMaterialService,
) *Tools {
	return &Tools{
		retriever: retriever,
		locator:   locator,
		figures:   figures,
		lessons:   lessons,
	}
}

func (t *Tools) NewServer() *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("search_textbook",
		mcp.WithDescription("Find textbook passages for a query. Exact title matches win; otherwise semantically similar, deduplicated passages are returned."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text question or topic")),
		mcp.WithNumber("top_k", mcp.Description("Number of nearest neighbours to consider (default 5)")),
		mcp.WithNumber("similarity_threshold", mcp.Description("Content similarity at or above which passages count as duplicates (default 0.98)")),
		mcp.WithString("mode", mcp.Description("exact, semantic or hybrid (default hybrid)")),
	), t.searchTextbook)

	s.AddTool(mcp.NewTool("locate_subchapter",
		mcp.WithDescription("Map a query to the single figure subchapter it is closest to."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text topic")),
	), t.locateSubchapter)

	s.AddTool(mcp.NewTool("list_figures",
		mcp.WithDescription("List the figures of a subchapter whose image file exists."),
		mcp.WithString("subchapter", mcp.Required(), mcp.Description("Exact subchapter name as returned by locate_subchapter")),
	), t.listFigures)

	s.AddTool(mcp.NewTool("lesson_material",
		mcp.WithDescription("Collect grounded passages, the best subchapter and its figures for a lesson topic."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Lesson topic")),
	), t.lessonMaterial)

	return s
}

// ServeStdio blocks serving the tools over stdin/stdout.
func (t *Tools) ServeStdio() error {
	return server.ServeStdio(t.NewServer())
}

func (t *Tools) searchTextbook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var mode domain.SearchMode
	if raw := request.GetString("mode", ""); raw != "" {
		mode, err = domain.ParseSearchMode(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	req := domain.SearchRequest{
		Query: query,
		TopK:  request.GetInt("top_k", 0),
		Mode:  mode,
	}
	if threshold := request.GetFloat("similarity_threshold", math.NaN()); !math.IsNaN(threshold) {
		req.SimilarityThreshold = &threshold
	}
	hits, err := t.retriever.Search(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	return jsonResult(map[string]any{"hits": hits})
}

func (t *Tools) locateSubchapter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, found, err := t.locator.Locate(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"found": found, "subchapter": name})
}

func (t *Tools) listFigures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subchapter, err := request.RequireString("subchapter")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	figures, err := t.figures.FiguresFor(ctx, subchapter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if figures == nil {
		figures = []domain.Figure{}
	}
	return jsonResult(map[string]any{"subchapter": subchapter, "figures": figures})
}

func (t *Tools) lessonMaterial(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	material, err := t.lessons.Material(ctx, topic)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(material)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
