package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/staffhub/staffhub/internal/shared"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("audit:record").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `staffhub_jobs_total{job="audit:record",status="success"} 1`) {
		t.Fatalf("expected job counter, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "staffhub_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "staffhub_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestObserveDecisionAndAuditFailure(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision(shared.PermVendorDelete, false)
	metrics.ObserveDecision(shared.PermVendorDelete, false)
	metrics.ObserveDecision(shared.PermDashboardView, true)
	metrics.AuditFailure("queue_full")

	body := scrape(t, metrics)
	for _, want := range []string{
		`staffhub_authz_decisions_total{outcome="deny",permission="vendor:delete"} 2`,
		`staffhub_authz_decisions_total{outcome="allow",permission="dashboard:view"} 1`,
		`staffhub_audit_failures_total{reason="queue_full"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in: %s", want, body)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveDecision(shared.PermDashboardView, true)
	metrics.AuditFailure("sink_error")
	if metrics.Jobs() != nil {
		t.Fatal("expected nil job metrics")
	}
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
