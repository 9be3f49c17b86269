package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHTTPCollectorRecordsMetrics(t *testing.T) {
	collector, err := NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go runtime metrics on the shared registry")
	}
	if !strings.Contains(body, "promptlib_http_requests_in_flight 0") {
		t.Errorf("expected in-flight gauge back at zero, body=%q", body)
	}
	if !strings.Contains(body, `promptlib_http_requests_total{method="GET",route="unmatched",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}

	if !strings.Contains(body, `promptlib_http_request_duration_seconds_count{method="GET",route="unmatched",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestHTTPCollectorUsesRoutePattern(t *testing.T) {
	collector, err := NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector returned error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /prompts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/prompts/"+id, nil)
		collector.InstrumentHandler(mux).ServeHTTP(httptest.NewRecorder(), req)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `promptlib_http_requests_total{method="GET",route="GET /prompts/{id}",status="200"} 3`) {
		t.Fatalf("expected requests grouped by pattern, body=%q", body)
	}
}

func TestLLMCollectorObservesCalls(t *testing.T) {
	collector, err := NewHTTPCollector()
	if err != nil {
		t.Fatalf("NewHTTPCollector returned error: %v", err)
	}
	llm, err := NewLLMCollector(collector.Registry())
	if err != nil {
		t.Fatalf("NewLLMCollector returned error: %v", err)
	}

	llm.ObserveCall("openai", true, 1500*time.Millisecond, 1000, 500, decimal.RequireFromString("0.0075"))
	llm.ObserveCall("anthropic", false, 200*time.Millisecond, 0, 0, decimal.Zero)

	body := scrape(t, collector)
	for _, want := range []string{
		`promptlib_llm_requests_total{provider="openai",status="success"} 1`,
		`promptlib_llm_requests_total{provider="anthropic",status="error"} 1`,
		`promptlib_llm_tokens_total{direction="input",provider="openai"} 1000`,
		`promptlib_llm_tokens_total{direction="output",provider="openai"} 500`,
		`promptlib_llm_cost_usd_total{provider="openai"} 0.0075`,
		`promptlib_llm_request_duration_seconds_count{provider="anthropic"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in metrics output", want)
		}
	}
}

func scrape(t *testing.T, collector *HTTPCollector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}
