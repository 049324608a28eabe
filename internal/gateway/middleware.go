package gateway

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/observability"
)

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// loggingMiddleware attaches a request id and a request-scoped logger, then
// logs every completed request. Health probes log at debug level.
func loggingMiddleware(base logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if id := r.Header.Get(requestIDHeader); id != "" {
				ctx = logging.ContextWithRequestID(ctx, id)
			}
			ctx, reqLog := logging.WithRequestLogger(ctx, base)
			ctx = logging.ContextWithLogger(ctx, reqLog)
			w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sr, r.WithContext(ctx))

			fields := []logging.Field{
				logging.String("component", "gateway"),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", sr.statusCode),
				logging.Int("duration_ms", int(time.Since(start).Milliseconds())),
				logging.String("remote_ip", r.RemoteAddr),
			}
			if r.URL.Path == "/healthz" {
				reqLog.Debug(ctx, "request", fields...)
				return
			}
			reqLog.Info(ctx, "request", fields...)
		})
	}
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(c *observability.RPCCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sr, r)
			c.ObserveHTTP(r.Method, routeOf(r), sr.statusCode, time.Since(start))
		})
	}
}

// routeOf returns the matched ServeMux pattern without its method prefix.
func routeOf(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, route, ok := strings.Cut(r.Pattern, " "); ok {
		return route
	}
	return r.Pattern
}
