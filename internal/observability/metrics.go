package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each instance owns its registry so
// tests can construct one without touching the global default.
type Metrics struct {
	registry *prometheus.Registry

	RetrievalTier  *prometheus.CounterVec
	RankLatency    prometheus.Histogram
	LLMRequests    *prometheus.CounterVec
	LLMLatency     prometheus.Histogram
	CatalogSize    prometheus.Gauge
	IndexSize      prometheus.Gauge
	IndexBuildTime prometheus.Gauge
}

// NewMetrics registers the Giftlens collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		RetrievalTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftlens",
			Name:      "retrieval_total",
			Help:      "Retrievals served, by fallback tier.",
		}, []string{"tier"}),
		RankLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "giftlens",
			Name:      "rank_duration_seconds",
			Help:      "Time spent encoding the query and ranking the catalog.",
			Buckets:   prometheus.DefBuckets,
		}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giftlens",
			Name:      "llm_requests_total",
			Help:      "Text-generation calls, by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		LLMLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "giftlens",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of text-generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftlens",
			Name:      "catalog_products",
			Help:      "Products loaded into the catalog.",
		}),
		IndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftlens",
			Name:      "index_vectors",
			Help:      "Vectors held by the embedding index.",
		}),
		IndexBuildTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "giftlens",
			Name:      "index_build_seconds",
			Help:      "Duration of the last embedding index build.",
		}),
	}

	reg.MustRegister(
		m.RetrievalTier,
		m.RankLatency,
		m.LLMRequests,
		m.LLMLatency,
		m.CatalogSize,
		m.IndexSize,
		m.IndexBuildTime,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRetrieval counts one retrieval served by tier. Safe on a nil receiver.
func (m *Metrics) ObserveRetrieval(tier string) {
	if m == nil {
		return
	}
	m.RetrievalTier.WithLabelValues(tier).Inc()
}

// ObserveRank records query encode + rank latency in seconds.
func (m *Metrics) ObserveRank(seconds float64) {
	if m == nil {
		return
	}
	m.RankLatency.Observe(seconds)
}

// ObserveLLM records one text-generation call.
func (m *Metrics) ObserveLLM(purpose, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(purpose, outcome).Inc()
	m.LLMLatency.Observe(seconds)
}

// SetIndex records catalog and index sizes after startup.
func (m *Metrics) SetIndex(products, vectors int, buildSeconds float64) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(products))
	m.IndexSize.Set(float64(vectors))
	m.IndexBuildTime.Set(buildSeconds)
}
