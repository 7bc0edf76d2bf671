// Package metrics holds the Prometheus collectors served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "khidma"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	rateLimited        prometheus.Counter
	suspiciousRequests prometheus.Counter
	collections        prometheus.Counter
	collectedCents     prometheus.Counter
	settlements        prometheus.Counter
	imports            *prometheus.CounterVec
	ocr                *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspiciousRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests matching an attack pattern.",
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_recorded_total",
			Help:      "Sponsor payments recorded.",
		}),
		collectedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collected_piasters_total",
			Help:      "Sum of recorded payments in piasters.",
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_finalized_total",
			Help:      "Area settlements finalized.",
		}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "CSV rows imported or skipped, by kind.",
		}, []string{"kind", "result"}),
		ocr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_extractions_total",
			Help:      "Screenshot extractions by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.rateLimited,
		m.suspiciousRequests,
		m.collections,
		m.collectedCents,
		m.settlements,
		m.imports,
		m.ocr,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) Suspicious() { m.suspiciousRequests.Inc() }

func (m *Metrics) CollectionRecorded(cents int64) {
	m.collections.Inc()
	if cents > 0 {
		m.collectedCents.Add(float64(cents))
	}
}

func (m *Metrics) SettlementFinalized() { m.settlements.Inc() }

func (m *Metrics) Imported(kind string, inserted, skipped int) {
	m.imports.WithLabelValues(kind, "inserted").Add(float64(inserted))
	m.imports.WithLabelValues(kind, "skipped").Add(float64(skipped))
}

func (m *Metrics) OCR(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ocr.WithLabelValues(result).Inc()
}
