package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsNormalizedPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents/policy-2567/chunks", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/documents/{name}/chunks", "404"))
	if got != 1 {
		t.Fatalf("expected one counted request, got %v", got)
	}
}

func TestRecordRAGObservationSplitsHitAndNoContext(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordRAGObservation("api", "chat", 3, 10*time.Millisecond)
	m.RecordRAGObservation("api", "chat", 0, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.ragRetrievalHitTotal.WithLabelValues("api", "chat")); got != 1 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(m.ragNoContextTotal.WithLabelValues("api", "chat")); got != 1 {
		t.Fatalf("no-context = %v", got)
	}
}

func TestSetBreakerState(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.SetBreakerState("openai.embed", "open")
	if got := testutil.ToFloat64(m.circuitBreakerOpen.WithLabelValues("openai.embed")); got != 1 {
		t.Fatalf("open = %v", got)
	}
	m.SetBreakerState("openai.embed", "closed")
	if got := testutil.ToFloat64(m.circuitBreakerOpen.WithLabelValues("openai.embed")); got != 0 {
		t.Fatalf("closed = %v", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordFilterSource("api", "search", "fallback")
	m.EmbeddingCacheCounter().WithLabelValues("hit").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"agrisense_rag_filter_source_total", "agrisense_embedding_cache_requests_total"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %s in exposition", want)
		}
	}
}
