package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/textbook-tutor/internal/config"
	"github.com/kirillkom/textbook-tutor/internal/core/domain"
	"github.com/kirillkom/textbook-tutor/internal/core/ports"
	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-tutor/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg config.Config

	retriever ports.PassageRetriever
	locator   ports.SubchapterLocator
	figures   ports.FigureCatalog
	lessons   ports.LessonMaterialService

	metrics      *metrics.HTTPServerMetrics
	dependencies func() []resilience.OperationState
}

func NewRouter(
	cfg config.Config,
	retriever ports.PassageRetriever,
	locator ports.SubchapterLocator,
	figures ports.FigureCatalog,
	lessons ports.LessonMaterialService,
) *Router {
	return &Router{
		cfg:       cfg,
		retriever: retriever,
		locator:   locator,
		figures:   figures,
		lessons:   lessons,
	}
}

// WithMetrics exposes /metrics and records per-request metrics.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

// WithDependencyStates reports breaker states on /healthz.
func (rt *Router) WithDependencyStates(fn func() []resilience.OperationState) *Router {
	rt.dependencies = fn
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/search", rt.search)
	api.HandleFunc("/v1/figures/locate", rt.locateSubchapter)
	api.HandleFunc("/v1/figures", rt.listFigures)
	api.HandleFunc("/v1/lessons/material", rt.lessonMaterial)

	var apiHandler http.Handler = openAPIValidationMiddleware(api, mustLoadOpenAPIValidator())
	apiHandler = backpressureMiddleware(apiHandler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMS)*time.Millisecond, rt.onBackpressureReject)
	if rt.cfg.APIRateLimitRPS > 0 {
		limiter := rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), max(rt.cfg.APIRateLimitBurst, 1))
		apiHandler = rateLimitMiddleware(apiHandler, limiter, rt.onRateLimited)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", apiHandler)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

func (rt *Router) onBackpressureReject() {
	if rt.metrics != nil {
		rt.metrics.RecordBackpressureRejected(serviceName)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	states := []resilience.OperationState{}
	if rt.dependencies != nil {
		states = rt.dependencies()
	}
	status := "ok"
	for _, state := range states {
		if state.State != "closed" {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"dependencies": states,
	})
}

type searchRequest struct {
	Query               string   `json:"query"`
	TopK                int      `json:"top_k"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	Mode                string   `json:"mode"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var mode domain.SearchMode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, err := domain.ParseSearchMode(req.Mode)
		if err != nil {
			writeError(w, err)
			return
		}
		mode = parsed
	}

	hits, err := rt.retriever.Search(r.Context(), domain.SearchRequest{
		Query:               req.Query,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
		Mode:                mode,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (rt *Router) locateSubchapter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	name, found, err := rt.locator.Locate(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":      found,
		"subchapter": name,
	})
}

func (rt *Router) listFigures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	subchapter := r.URL.Query().Get("subchapter")
	if subchapter == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subchapter is required"})
		return
	}

	figures, err := rt.figures.FiguresFor(r.Context(), subchapter)
	if err != nil {
		writeError(w, err)
		return
	}
	if figures == nil {
		figures = []domain.Figure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subchapter": subchapter,
		"figures":    figures,
	})
}

func (rt *Router) lessonMaterial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	material, err := rt.lessons.Material(r.Context(), req.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
