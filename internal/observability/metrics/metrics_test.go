package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

func TestRetrievalMetricsObserveSearch(t *testing.T) {
	httpMetrics := NewHTTPServerMetrics("api")
	m := NewRetrievalMetrics("api", httpMetrics.Registerer())

	m.ObserveSearch(domain.SearchModeHybrid, 2, 1, 10*time.Millisecond, nil)
	m.ObserveSearch(domain.SearchModeSemantic, 0, 0, time.Millisecond, nil)
	m.ObserveSearch(domain.SearchModeHybrid, 0, 0, time.Millisecond, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("blank")))

	if got := testutil.ToFloat64(m.searchTotal.WithLabelValues("api", "hybrid", "success")); got != 1 {
		t.Fatalf("expected 1 hybrid success, got %v", got)
	}
	if got := testutil.ToFloat64(m.searchTotal.WithLabelValues("api", "hybrid", "invalid_input")); got != 1 {
		t.Fatalf("expected 1 invalid input, got %v", got)
	}
	if got := testutil.ToFloat64(m.suppressedTotal.WithLabelValues("api")); got != 1 {
		t.Fatalf("expected 1 suppressed, got %v", got)
	}
	if got := testutil.ToFloat64(m.noResultTotal.WithLabelValues("api", "semantic")); got != 1 {
		t.Fatalf("expected 1 empty semantic search, got %v", got)
	}
}

func TestRetrievalMetricsLocateAndBreaker(t *testing.T) {
	m := NewRetrievalMetrics("worker", NewWorkerMetrics("worker").Registerer())

	m.ObserveLocate(true, time.Millisecond, nil)
	m.ObserveLocate(false, time.Millisecond, nil)
	if got := testutil.ToFloat64(m.locateTotal.WithLabelValues("worker", "found")); got != 1 {
		t.Fatalf("expected 1 found, got %v", got)
	}

	m.BreakerStateChanged("ollama_embed", "closed", "open")
	if got := testutil.ToFloat64(m.breakerOpenGauge.WithLabelValues("worker", "ollama_embed")); got != 1 {
		t.Fatalf("expected open gauge, got %v", got)
	}
	m.BreakerStateChanged("ollama_embed", "half-open", "closed")
	if got := testutil.ToFloat64(m.breakerOpenGauge.WithLabelValues("worker", "ollama_embed")); got != 0 {
		t.Fatalf("expected closed gauge, got %v", got)
	}
}

func TestHTTPMiddlewareRecordsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/search", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path/123", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/v1/search", "418")); got != 1 {
		t.Fatalf("expected 1 search request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "other", "418")); got != 1 {
		t.Fatalf("expected unknown path folded into other, got %v", got)
	}

	res := httptest.NewRecorder()
	m.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(res.Body.String(), "tutor_http_requests_total") {
		t.Fatalf("expected exported metric, got %s", res.Body.String())
	}
}

func TestWorkerMetricsFinishRequest(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartRequest()
	m.FinishRequest("tutor.search", time.Millisecond, domain.WrapError(domain.ErrTemporary, "embed", errors.New("down")))
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("worker", "tutor.search", "temporary")); got != 1 {
		t.Fatalf("expected 1 temporary failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestInFlight); got != 0 {
		t.Fatalf("expected no in-flight requests, got %v", got)
	}
}

func TestStatusRecorderCapturesStatusAndBytes(t *testing.T) {
	res := httptest.NewRecorder()
	recorder := NewStatusRecorder(res)
	if recorder.StatusCode() != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", recorder.StatusCode())
	}

	recorder.WriteHeader(http.StatusTeapot)
	if _, err := recorder.Write([]byte("short")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if recorder.StatusCode() != http.StatusTeapot || recorder.BytesWritten() != 5 {
		t.Fatalf("unexpected status=%d bytes=%d", recorder.StatusCode(), recorder.BytesWritten())
	}
	if res.Code != http.StatusTeapot || res.Body.String() != "short" {
		t.Fatalf("response not forwarded: %d %q", res.Code, res.Body.String())
	}
}
