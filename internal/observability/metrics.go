package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "impact"

// rpcLatencyBuckets cover sub-millisecond cache hits up to a slow second.
var rpcLatencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// RPCCollector holds the transport metrics of the gRPC service and the HTTP
// gateway.
type RPCCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewRPCCollector registers the transport metrics on reg, or on the default
// registry when reg is nil. Metrics already registered by an earlier
// collector are reused.
func NewRPCCollector(reg prometheus.Registerer) (*RPCCollector, error) {
	reg, gatherer := resolveRegistry(reg)
	c := &RPCCollector{gatherer: gatherer}

	var err error
	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Handled RPCs by service, method and gRPC status code.",
	}, []string{"service", "method", "code"})); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "RPC latency in seconds.",
		Buckets:   rpcLatencyBuckets,
	}, []string{"service", "method"})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP handler latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	return c, nil
}

// UnaryServerInterceptor counts each unary RPC by status code and observes
// its latency. A nil collector passes calls through.
func (c *RPCCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if c == nil {
			return handler(ctx, req)
		}
		start := time.Now()
		resp, err := handler(ctx, req)

		var fullMethod string
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// ObserveHTTP records one completed HTTP request. route must be the matched
// mux pattern rather than the raw path so label cardinality stays bounded.
func (c *RPCCollector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Gatherer returns the registry the collector's metrics are gathered from.
func (c *RPCCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *RPCCollector) Handler() http.Handler {
	g := c.Gatherer()
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SplitMethod turns "/pkg.Service/Method" into ("Service", "Method"). Missing
// parts come back as "unknown".
func SplitMethod(fullMethod string) (service, method string) {
	path := strings.TrimPrefix(fullMethod, "/")
	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return "unknown", "unknown"
	}
	service, method = path[:slash], path[slash+1:]
	service = service[strings.LastIndex(service, "/")+1:]
	service = service[strings.LastIndex(service, ".")+1:]
	return orUnknown(service), orUnknown(method)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func resolveRegistry(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		return reg, g
	}
	return reg, prometheus.DefaultGatherer
}

// register adds c to reg. When an identical collector is already registered
// the existing one is returned so that several servers in one process share
// their series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("metric collector of type %T already registered with a different type", c)
	}
	return existing, nil
}
