package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoContextTotal    *prometheus.CounterVec
	ragRetrievedPassages *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec
	ragFilterSourceTotal *prometheus.CounterVec
	ragCandidates        *prometheus.HistogramVec
	streamFragments      *prometheus.HistogramVec
	streamsTotal         *prometheus.CounterVec
	embeddingCacheTotal  *prometheus.CounterVec
	circuitBreakerOpen   *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful retrievals.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total retrievals with at least one passage.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total retrievals without passages.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedPassages := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_passages",
			Help:      "Distribution of fused passages per successful retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ragFilterSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "filter_source_total",
			Help:      "Retrievals by the origin of their filters (model, fallback, caller).",
		},
		[]string{"service", "endpoint", "source"},
	)
	ragCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "candidates",
			Help:      "Candidate passages returned per search strategy before fusion.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
		[]string{"service", "strategy"},
	)
	streamFragments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stream_fragments",
			Help:      "Fragments written per chat stream.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service"},
	)
	streamsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "streams_total",
			Help:      "Finished chat streams by status.",
		},
		[]string{"service", "status"},
	)
	embeddingCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "embedding_cache",
			Name:        "requests_total",
			Help:        "Query embedding cache lookups by result.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"result"},
	)
	circuitBreakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "circuit_breaker_open",
			Help:        "1 when the breaker of an outbound operation is open, 0.5 half-open, 0 closed.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragRetrievedPassages,
		ragDuration,
		ragFilterSourceTotal,
		ragCandidates,
		streamFragments,
		streamsTotal,
		embeddingCacheTotal,
		circuitBreakerOpen,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		ragRequestsTotal:     ragRequestsTotal,
		ragRetrievalHitTotal: ragRetrievalHitTotal,
		ragNoContextTotal:    ragNoContextTotal,
		ragRetrievedPassages: ragRetrievedPassages,
		ragDuration:          ragDuration,
		ragFilterSourceTotal: ragFilterSourceTotal,
		ragCandidates:        ragCandidates,
		streamFragments:      streamFragments,
		streamsTotal:         streamsTotal,
		embeddingCacheTotal:  embeddingCacheTotal,
		circuitBreakerOpen:   circuitBreakerOpen,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/") && strings.HasSuffix(path, "/chunks"):
		return "/v1/documents/{name}/chunks"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRAGObservation(service, endpoint string, passageCount int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(service, endpoint).Inc()
	m.ragRetrievedPassages.WithLabelValues(service, endpoint).Observe(float64(passageCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if passageCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordFilterSource(service, endpoint, source string) {
	if source == "" {
		source = "unknown"
	}
	m.ragFilterSourceTotal.WithLabelValues(service, endpoint, source).Inc()
}

func (m *HTTPServerMetrics) RecordCandidates(service string, metadata, fullText, vector int) {
	m.ragCandidates.WithLabelValues(service, "metadata").Observe(float64(metadata))
	m.ragCandidates.WithLabelValues(service, "fulltext").Observe(float64(fullText))
	m.ragCandidates.WithLabelValues(service, "vector").Observe(float64(vector))
}

func (m *HTTPServerMetrics) RecordStream(service, status string, fragments int) {
	if status == "" {
		status = "unknown"
	}
	m.streamsTotal.WithLabelValues(service, status).Inc()
	m.streamFragments.WithLabelValues(service).Observe(float64(fragments))
}

// EmbeddingCacheCounter is handed to the embedding cache; its only label is
// "result".
func (m *HTTPServerMetrics) EmbeddingCacheCounter() *prometheus.CounterVec {
	return m.embeddingCacheTotal
}

// SetBreakerState matches resilience.Config.OnStateChange.
func (m *HTTPServerMetrics) SetBreakerState(operation, state string) {
	m.circuitBreakerOpen.WithLabelValues(operation).Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 1
	case "half-open":
		return 0.5
	default:
		return 0
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
