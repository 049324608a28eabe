package nbi

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/kb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingInterceptorOpensServerSpan(t *testing.T) {
	rec := withSpanRecorder(t)
	interceptor := TracingUnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: SimulateMethod}
	ctx := logging.ContextWithRequestID(context.Background(), "req-7")

	boom := errors.New("boom")
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "RPC/impact.v1.ImpactService/Simulate" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Fatalf("span status = %v, want Error", span.Status().Code)
	}
	if v, ok := spanAttr(span, "request_id"); !ok || v.AsString() != "req-7" {
		t.Fatalf("request_id attribute = %v (present %v), want req-7", v.AsString(), ok)
	}
}

func TestServiceRecordsComputeSpans(t *testing.T) {
	rec := withSpanRecorder(t)
	svc := NewImpactService(kb.NewDefaultKnowledgeBase(), nil)

	if _, err := svc.ComputeImpact(context.Background(), &types.SimulationRequest{Preset: "Tunguska-1908"}); err != nil {
		t.Fatalf("ComputeImpact: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "core.ComputeImpactReport" {
		t.Fatalf("span name = %q, want core.ComputeImpactReport", span.Name())
	}
	if v, _ := spanAttr(span, "asteroid.preset"); v.AsString() != "Tunguska-1908" {
		t.Fatalf("asteroid.preset = %q, want Tunguska-1908", v.AsString())
	}
	if v, _ := spanAttr(span, "asteroid.diameter_m"); v.AsFloat64() != 60 {
		t.Fatalf("asteroid.diameter_m = %v, want 60", v.AsFloat64())
	}
	if v, _ := spanAttr(span, "threat"); v.AsString() == "" {
		t.Fatalf("threat attribute missing")
	}

	if _, err := svc.ComputeTrajectory(context.Background(), referenceRequest(-1)); err == nil {
		t.Fatalf("ComputeTrajectory with negative delta-v succeeded")
	}
	spans = rec.Ended()
	if got := spans[len(spans)-1]; got.Status().Code != codes.Error {
		t.Fatalf("failed computation span status = %v, want Error", got.Status().Code)
	}
}
