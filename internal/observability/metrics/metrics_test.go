package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTPRequestCountsServerErrors(t *testing.T) {
	before := testutil.ToFloat64(httpErrors.WithLabelValues("/api/test", "GET"))
	ObserveHTTPRequest("/api/test", "GET", 503, 20*time.Millisecond)
	ObserveHTTPRequest("/api/test", "GET", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(httpErrors.WithLabelValues("/api/test", "GET")) - before; got != 1 {
		t.Fatalf("expected one server error, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("/api/test", "GET", "200")); got < 1 {
		t.Fatalf("expected request counter to advance, got %v", got)
	}
}

func TestHandlerExposesDomainMetrics(t *testing.T) {
	ObserveCacheLookup(true)
	ObserveProviderAttempt("groq", OutcomeError, time.Second)
	ObserveFallback("GeneralQuery")
	ObserveIngest("Price")
	ObserveDecision("Trade")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`sentinelx_llm_cache_lookups_total{result="hit"}`,
		`sentinelx_llm_provider_attempts_total{outcome="error",provider="groq"}`,
		`sentinelx_llm_canned_fallbacks_total{task_type="GeneralQuery"}`,
		`sentinelx_indexer_feeds_ingested_total{data_type="Price"}`,
		`sentinelx_indexer_decisions_recorded_total{decision_type="Trade"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metric %s missing from exposition", want)
		}
	}
}
