package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"txdash/internal/log"
	"txdash/internal/metrics"
)

func newTraced(t *testing.T, buf *bytes.Buffer) http.Handler {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(buf, nil), Component: log.ComponentHTTP})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("request ID missing from context")
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "handling")
		w.WriteHeader(http.StatusAccepted)
	})
	return NewMiddleware(logger, func(*http.Request) string { return "198.51.100.1" }).Middleware(mux)
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTraced(t, &buf)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/1", nil))

	id := rr.Header().Get(RequestIDHeader)
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("generated request ID = %q", id)
	}
	if !strings.Contains(buf.String(), "request_id="+id) {
		t.Errorf("handler log lacks request id: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "status_code=202") {
		t.Errorf("completion log lacks status: %s", buf.String())
	}
}

func TestMiddleware_KeepsUpstreamRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newTraced(t, &buf)

	req := httptest.NewRequest(http.MethodGet, "/items/2", nil)
	req.Header.Set(RequestIDHeader, "edge-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "edge-123" {
		t.Errorf("request ID = %q, want edge-123", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/items/3", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got == "bad id with spaces" {
		t.Error("invalid upstream request ID should be replaced")
	}
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	h := newTraced(t, &buf)

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET /items/{id}", http.MethodGet, "202")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/9", nil))

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("route counter = %v, want %v", got, before+1)
	}

	unmatched := metrics.HTTPRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404")
	before = testutil.ToFloat64(unmatched)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(unmatched); got != before+1 {
		t.Errorf("unmatched counter = %v, want %v", got, before+1)
	}
}
