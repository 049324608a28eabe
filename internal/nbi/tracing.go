package nbi

import (
	"context"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/observability"
	"github.com/signalsfoundry/impact-simulator/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

const tracerName = "github.com/signalsfoundry/impact-simulator/internal/nbi"

// TracingUnaryServerInterceptor names the server span "RPC/<service>/<method>"
// and tags it with the rpc and request id attributes. It opens the span itself
// when no stats handler already did.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := "RPC/" + service + "/" + method

		span := trace.SpanFromContext(ctx)
		owned := !span.SpanContext().IsValid()
		if owned {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
		} else {
			span.SetName(name)
		}

		span.SetAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
		)
		if id := logging.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return resp, err
	}
}

// startComputeSpan opens a child span for one computation and tags it with
// the resolved inputs. preset is empty for inline asteroids.
func startComputeSpan(ctx context.Context, name, preset string, p model.AsteroidParameters, d model.DeflectionImpulse) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.Float64("asteroid.diameter_m", p.DiameterMeters),
		attribute.Float64("asteroid.density_kg_m3", p.DensityKgPerM3),
		attribute.Float64("asteroid.velocity_km_s", p.VelocityKmPerSec),
		attribute.Float64("asteroid.entry_angle_deg", p.EntryAngleDegrees),
		attribute.Float64("deflection.delta_v_km_s", d.DeltaVKmPerSec),
	}
	if preset != "" {
		attrs = append(attrs, attribute.String("asteroid.preset", preset))
	}
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
