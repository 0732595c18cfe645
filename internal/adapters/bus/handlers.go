package busadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/queue/nats"
)

// Services are the retrieval operations answered over the bus.
type Services struct {
	Retriever ports.PassageRetriever
	Locator   ports.SubchapterLocator
	Figures   ports.FigureCatalog
	Lessons   ports.LessonMaterialService
}

type SearchRequest struct {
	Query               string   `json:"query"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	Mode                string   `json:"mode"`
}

type SearchReply struct {
	Hits []domain.SearchHit `json:"hits"`
}

type LocateRequest struct {
	Query string `json:"query"`
}

type LocateReply struct {
	Found      bool   `json:"found"`
	Subchapter string `json:"subchapter"`
}

type FiguresRequest struct {
	Subchapter string `json:"subchapter"`
}

type FiguresReply struct {
	Subchapter string          `json:"subchapter"`
	Figures    []domain.Figure `json:"figures"`
}

type MaterialRequest struct {
	Topic string `json:"topic"`
}

// Handlers returns the subject table for prefix, e.g. "tutor.search".
func Handlers(prefix string, services Services) map[string]nats.Handler {
	return map[string]nats.Handler{
		prefix + ".search":           searchHandler(services.Retriever),
		prefix + ".figures.locate":   locateHandler(services.Locator),
		prefix + ".figures.list":     figuresHandler(services.Figures),
		prefix + ".lessons.material": materialHandler(services.Lessons),
	}
}

func Register(responder *nats.Responder, prefix string, services Services) {
	for subject, handler := range Handlers(prefix, services) {
		responder.Handle(subject, handler)
	}
	responder.WithErrorEncoder(ErrorKind)
}

// ErrorKind names the domain kind of err for the reply envelope.
func ErrorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "internal"
	}
}

func decode(op string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("decode request: %w", err))
	}
	return nil
}

func searchHandler(retriever ports.PassageRetriever) nats.Handler {
	return func(ctx context.Context, data []byte) (any, error) {
		var req SearchRequest
		if err := decode("bus search", data, &req); err != nil {
			return nil, err
		}
		var mode domain.SearchMode
		if req.Mode != "" {
			parsed, err := domain.ParseSearchMode(req.Mode)
			if err != nil {
				return nil, err
			}
			mode = parsed
		}

		hits, err := retriever.Search(ctx, domain.SearchRequest{
			Query:               req.Query,
			TopK:                req.TopK,
			SimilarityThreshold: req.SimilarityThreshold,
			Mode:                mode,
		})
		if err != nil {
			return nil, err
		}
		if hits == nil {
			hits = []domain.SearchHit{}
		}
		return SearchReply{Hits: hits}, nil
	}
}

func locateHandler(locator ports.SubchapterLocator) nats.Handler {
	return func(ctx context.Context, data []byte) (any, error) {
		var req LocateRequest
		if err := decode("bus locate", data, &req); err != nil {
			return nil, err
		}
		name, found, err := locator.Locate(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		return LocateReply{Found: found, Subchapter: name}, nil
	}
}

func figuresHandler(figures ports.FigureCatalog) nats.Handler {
	return func(ctx context.Context, data []byte) (any, error) {
		var req FiguresRequest
		if err := decode("bus figures", data, &req); err != nil {
			return nil, err
		}
		if req.Subchapter == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "bus figures", fmt.Errorf("subchapter is required"))
		}
		list, err := figures.FiguresFor(ctx, req.Subchapter)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []domain.Figure{}
		}
		return FiguresReply{Subchapter: req.Subchapter, Figures: list}, nil
	}
}

func materialHandler(lessons ports.LessonMaterialService) nats.Handler {
	return func(ctx context.Context, data []byte) (any, error) {
		var req MaterialRequest
		if err := decode("bus material", data, &req); err != nil {
			return nil, err
		}
		return lessons.Material(ctx, req.Topic)
	}
}
