package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

const namespace = "tutor"

// RetrievalMetrics implements ports.RetrievalObserver and tracks breaker
// state for outbound dependencies.
type RetrievalMetrics struct {
	service string

	searchTotal      *prometheus.CounterVec
	searchDuration   *prometheus.HistogramVec
	searchHits       *prometheus.HistogramVec
	suppressedTotal  *prometheus.CounterVec
	noResultTotal    *prometheus.CounterVec
	locateTotal      *prometheus.CounterVec
	locateDuration   *prometheus.HistogramVec
	breakerOpenGauge *prometheus.GaugeVec
}

func NewRetrievalMetrics(service string, registerer prometheus.Registerer) *RetrievalMetrics {
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_total",
			Help:      "Search calls by mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds by mode.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	searchHits := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "search_hits",
			Help:      "Passages returned per successful search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "mode"},
	)
	suppressedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "near_duplicates_suppressed_total",
			Help:      "Semantic candidates dropped as near-duplicates.",
		},
		[]string{"service"},
	)
	noResultTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "no_result_total",
			Help:      "Successful searches that returned nothing.",
		},
		[]string{"service", "mode"},
	)
	locateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "figures",
			Name:      "locate_total",
			Help:      "Subchapter lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	locateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "figures",
			Name:      "locate_duration_seconds",
			Help:      "Subchapter lookup duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	breakerOpenGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dependency",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker for an operation is open or half-open.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(
		searchTotal,
		searchDuration,
		searchHits,
		suppressedTotal,
		noResultTotal,
		locateTotal,
		locateDuration,
		breakerOpenGauge,
	)

	return &RetrievalMetrics{
		service:          service,
		searchTotal:      searchTotal,
		searchDuration:   searchDuration,
		searchHits:       searchHits,
		suppressedTotal:  suppressedTotal,
		noResultTotal:    noResultTotal,
		locateTotal:      locateTotal,
		locateDuration:   locateDuration,
		breakerOpenGauge: breakerOpenGauge,
	}
}

func (m *RetrievalMetrics) ObserveSearch(mode domain.SearchMode, hits, suppressed int, duration time.Duration, err error) {
	modeLabel := string(mode)
	if modeLabel == "" {
		modeLabel = "unknown"
	}
	m.searchDuration.WithLabelValues(m.service, modeLabel).Observe(duration.Seconds())
	if err != nil {
		m.searchTotal.WithLabelValues(m.service, modeLabel, errorStatus(err)).Inc()
		return
	}

	m.searchTotal.WithLabelValues(m.service, modeLabel, "success").Inc()
	m.searchHits.WithLabelValues(m.service, modeLabel).Observe(float64(hits))
	if suppressed > 0 {
		m.suppressedTotal.WithLabelValues(m.service).Add(float64(suppressed))
	}
	if hits == 0 {
		m.noResultTotal.WithLabelValues(m.service, modeLabel).Inc()
	}
}

func (m *RetrievalMetrics) ObserveLocate(found bool, duration time.Duration, err error) {
	m.locateDuration.WithLabelValues(m.service).Observe(duration.Seconds())
	outcome := "not_found"
	switch {
	case err != nil:
		outcome = errorStatus(err)
	case found:
		outcome = "found"
	}
	m.locateTotal.WithLabelValues(m.service, outcome).Inc()
}

// BreakerStateChanged matches resilience.Config.OnStateChange.
func (m *RetrievalMetrics) BreakerStateChanged(operation, _, to string) {
	value := 0.0
	if to != "closed" {
		value = 1
	}
	m.breakerOpenGauge.WithLabelValues(m.service, operation).Set(value)
}

func errorStatus(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid_input"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}
