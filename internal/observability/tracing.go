package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Span exporters understood by InitTracing.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const (
	defaultServiceName  = "impact-simulator"
	defaultOTLPEndpoint = "localhost:4317"
	tracingFlushTimeout = 5 * time.Second
)

// TracingConfig selects the span exporter and sampling of the process.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string
	// Endpoint is the OTLP collector address; empty means localhost:4317.
	Endpoint string
	// SampleRatio applies to root spans. Child spans follow their parent.
	SampleRatio float64

	// Writer receives stdout exporter output; nil means os.Stdout.
	Writer io.Writer
}

// TracingConfigFromEnv reads the IMPACT_TRACING_* variables and
// IMPACT_OTLP_ENDPOINT. Tracing is off unless IMPACT_TRACING_ENABLED is
// "true"; an unparsable or out-of-range sample ratio falls back to 1.
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("IMPACT_TRACING_ENABLED"), "true"),
		ServiceName: defaultServiceName,
		Exporter:    ExporterStdout,
		Endpoint:    os.Getenv("IMPACT_OTLP_ENDPOINT"),
		SampleRatio: 1,
	}
	if v := os.Getenv("IMPACT_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("IMPACT_TRACING_EXPORTER"); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv("IMPACT_TRACING_SAMPLE_RATIO"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 && r <= 1 {
			cfg.SampleRatio = r
		}
	}
	return cfg
}

// Tracing is the process tracer provider installed by InitTracing.
type Tracing struct {
	enabled  bool
	shutdown func(context.Context) error
}

// Enabled reports whether spans are exported.
func (t *Tracing) Enabled() bool {
	return t != nil && t.enabled
}

// Shutdown flushes pending spans, giving up after five seconds.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, tracingFlushTimeout)
	defer cancel()
	return t.shutdown(ctx)
}

// InitTracing installs the global tracer provider and W3C propagators. With
// tracing disabled a noop provider is installed so instrumented code stays
// cheap.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return &Tracing{}, nil
	}

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("service.namespace", "impact"),
		attribute.String("service.version", buildVersion()),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", serviceName),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return &Tracing{enabled: true, shutdown: tp.Shutdown}, nil
}

func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterStdout, "":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.Exporter)
	}
}

// buildVersion is the main module version, or "devel" for local builds.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "devel"
}
