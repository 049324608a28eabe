package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/impact.v1.ImpactService/ComputeImpact"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("ImpactService", "ComputeImpact", "OK")); got != 1 {
		t.Fatalf("impact_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "impact_rpc_request_duration_seconds", map[string]string{
		"service": "ImpactService",
		"method":  "ComputeImpact",
	}); count != 1 {
		t.Fatalf("impact_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/impact.v1.ImpactService/ComputeTrajectory"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("ImpactService", "ComputeTrajectory", "InvalidArgument")); got != 1 {
		t.Fatalf("impact_rpc_requests_total error label = %v, want 1", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	collector.ObserveHTTP(http.MethodPost, "/api/v1/impact", http.StatusBadRequest, time.Millisecond)
	collector.ObserveHTTP(http.MethodPost, "/api/v1/impact", http.StatusBadRequest, time.Millisecond)

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST", "/api/v1/impact", "400")); got != 2 {
		t.Fatalf("impact_http_requests_total = %v, want 2", got)
	}
	if count := histogramSampleCount(t, reg, "impact_http_request_duration_seconds", map[string]string{
		"method": "POST",
		"route":  "/api/v1/impact",
	}); count != 2 {
		t.Fatalf("impact_http_request_duration_seconds sample_count = %d, want 2", count)
	}

	var nilCollector *RPCCollector
	nilCollector.ObserveHTTP(http.MethodGet, "/", http.StatusOK, 0)
}

func TestCollectorsReuseExistingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}
	second, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("second NewRPCCollector: %v", err)
	}
	first.RPCRequests.WithLabelValues("s", "m", "OK").Inc()
	if got := testutil.ToFloat64(second.RPCRequests.WithLabelValues("s", "m", "OK")); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}

	if _, err := NewOutcomeCollector(reg); err != nil {
		t.Fatalf("NewOutcomeCollector: %v", err)
	}
	if _, err := NewOutcomeCollector(reg); err != nil {
		t.Fatalf("second NewOutcomeCollector: %v", err)
	}
}

func TestCollectorRejectsConflictingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "impact_report_cache_hit_ratio",
		Help: "Hit ratio for the memoized report cache.",
	}, nil))

	if _, err := NewOutcomeCollector(reg); err == nil {
		t.Fatalf("NewOutcomeCollector succeeded over a conflicting gauge vec")
	}
}

func TestOutcomeCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOutcomeCollector(reg)
	if err != nil {
		t.Fatalf("NewOutcomeCollector: %v", err)
	}

	collector.ObserveReport("global", 596331.95)
	collector.ObserveReport("extinction", 1e13)
	collector.ObserveTrajectory(true)
	collector.ObserveTrajectory(false)
	collector.ObserveTrajectory(false)
	collector.SetReportCacheHitRatio(1.5)

	if got := testutil.ToFloat64(collector.ThreatClassifications.WithLabelValues("global")); got != 1 {
		t.Fatalf("threat global = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.TrajectoryVerdicts.WithLabelValues("miss")); got != 2 {
		t.Fatalf("verdict miss = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.ReportCacheRatio); got != 1 {
		t.Fatalf("cache ratio = %v, want clamp to 1", got)
	}
	if count := histogramSampleCount(t, reg, "impact_tnt_equivalent_tons", nil); count != 2 {
		t.Fatalf("impact_tnt_equivalent_tons sample_count = %d, want 2", count)
	}

	var nilCollector *OutcomeCollector
	nilCollector.ObserveReport("local", 1)
	nilCollector.ObserveTrajectory(true)
	nilCollector.SetReportCacheHitRatio(0.5)
}

func TestMetricsHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}
	outcomes, err := NewOutcomeCollector(reg)
	if err != nil {
		t.Fatalf("NewOutcomeCollector: %v", err)
	}
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)
	collector.ObserveHTTP(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
	outcomes.ObserveReport("regional", 5000)
	outcomes.ObserveTrajectory(true)
	outcomes.SetReportCacheHitRatio(0.25)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"impact_rpc_requests_total",
		"impact_rpc_request_duration_seconds",
		"impact_http_requests_total",
		"impact_threat_classifications_total",
		"impact_trajectory_verdicts_total",
		"impact_tnt_equivalent_tons",
		"impact_report_cache_hit_ratio 0.25",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in, service, method string
	}{
		{"/impact.v1.ImpactService/Simulate", "ImpactService", "Simulate"},
		{"ImpactService/ListPresets", "ImpactService", "ListPresets"},
		{"", "unknown", "unknown"},
		{"/broken", "unknown", "unknown"},
		{"/svc/", "svc", "unknown"},
	}
	for _, tc := range tests {
		service, method := SplitMethod(tc.in)
		if service != tc.service || method != tc.method {
			t.Errorf("SplitMethod(%q) = (%q, %q), want (%q, %q)", tc.in, service, method, tc.service, tc.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
