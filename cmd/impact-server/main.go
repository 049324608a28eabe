package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/signalsfoundry/impact-simulator/internal/gateway"
	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/memo"
	"github.com/signalsfoundry/impact-simulator/internal/nbi"
	"github.com/signalsfoundry/impact-simulator/internal/observability"
	"github.com/signalsfoundry/impact-simulator/kb"
	"github.com/signalsfoundry/impact-simulator/timectrl"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 5 * time.Second

// Config is the server configuration. Flags override IMPACT_* environment
// variables, which override the defaults.
type Config struct {
	ListenAddress  string
	HTTPAddress    string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	PresetsPath    string
	CacheTTL       time.Duration
	CacheSize      int
	PlaybackTick   time.Duration
	Accelerated    bool
	SiteEpoch      string
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: true})
	defer func() { _ = logging.Sync(log) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "impact server exited", logging.Err(err))
		os.Exit(1)
	}
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("impact-server", flag.ContinueOnError)
	cfg := Config{}
	fs.StringVar(&cfg.ListenAddress, "grpc-addr", envOr("IMPACT_GRPC_ADDR", ":50051"), "TCP address the gRPC server listens on")
	fs.StringVar(&cfg.HTTPAddress, "http-addr", envOr("IMPACT_HTTP_ADDR", ":8080"), "HTTP address of the JSON gateway (empty disables)")
	fs.StringVar(&cfg.MetricsAddress, "metrics-addr", envOr("IMPACT_METRICS_ADDR", ":9090"), "HTTP address for Prometheus /metrics (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "console"), "json or console")
	fs.StringVar(&cfg.PresetsPath, "presets", envOr("IMPACT_PRESETS", ""), "Optional YAML or JSON file of extra presets")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", envDuration("IMPACT_CACHE_TTL", 5*time.Minute), "Lifetime of memoized simulations")
	fs.IntVar(&cfg.CacheSize, "cache-size", envInt("IMPACT_CACHE_SIZE", 1024), "Maximum memoized simulations (0 disables the cache)")
	fs.DurationVar(&cfg.PlaybackTick, "playback-tick", envDuration("IMPACT_PLAYBACK_TICK", 50*time.Millisecond), "Delay between websocket playback frames")
	fs.BoolVar(&cfg.Accelerated, "accelerated", envOr("IMPACT_ACCELERATED", "") == "true", "Stream playback frames without waiting for ticks")
	fs.StringVar(&cfg.SiteEpoch, "site-epoch", envOr("IMPACT_SITE_EPOCH", ""), `Locate impact sites at this RFC 3339 epoch, or "now" (empty disables)`)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if _, err := siteClock(cfg.SiteEpoch); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// run serves until ctx is cancelled or a server fails. The gRPC listener is
// passed in; the HTTP listeners are opened from cfg.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	l := listeners{grpc: lis}
	var err error
	if cfg.HTTPAddress != "" {
		if l.http, err = net.Listen("tcp", cfg.HTTPAddress); err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
	}
	if cfg.MetricsAddress != "" {
		if l.metrics, err = net.Listen("tcp", cfg.MetricsAddress); err != nil {
			if l.http != nil {
				_ = l.http.Close()
			}
			return fmt.Errorf("listen metrics: %w", err)
		}
	}
	return serve(ctx, cfg, log, l)
}

type listeners struct {
	grpc    net.Listener
	http    net.Listener // optional
	metrics net.Listener // optional
}

func (l listeners) close() {
	for _, lis := range []net.Listener{l.grpc, l.http, l.metrics} {
		if lis != nil {
			_ = lis.Close()
		}
	}
}

// serve owns the listeners: servers close them on shutdown, and serve closes
// them itself if setup fails before the servers start.
func serve(ctx context.Context, cfg Config, log logging.Logger, l listeners) error {
	if log == nil {
		log = logging.Noop()
	}
	serving := false
	defer func() {
		if !serving {
			l.close()
		}
	}()

	tracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Warn(context.Background(), "tracing shutdown failed", logging.Err(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	outcomes, err := observability.NewOutcomeCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	catalog, err := loadCatalog(ctx, cfg.PresetsPath, log)
	if err != nil {
		return err
	}

	opts := []nbi.Option{nbi.WithOutcomeRecorder(outcomes)}
	if cfg.CacheSize > 0 {
		opts = append(opts, nbi.WithCache(memo.New(cfg.CacheTTL, cfg.CacheSize)))
	}
	clock, err := siteClock(cfg.SiteEpoch)
	if err != nil {
		return err
	}
	if clock != nil {
		opts = append(opts, nbi.WithSiteClock(clock))
	}
	svc := nbi.NewImpactService(catalog, log, opts...)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			nbi.RequestIDUnaryServerInterceptor(log),
			nbi.TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
		),
	)
	nbi.RegisterImpactServiceServer(grpcServer, svc)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(nbi.ServiceName, healthpb.HealthCheckResponse_SERVING)

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Accelerated
	}
	var httpServers []*http.Server

	serving = true
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting gRPC server", logging.String("addr", l.grpc.Addr().String()))
		if err := grpcServer.Serve(l.grpc); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	if l.http != nil {
		gw := gateway.New(svc, gateway.Config{
			Logger:       log,
			Metrics:      rpcMetrics,
			PlaybackTick: cfg.PlaybackTick,
			PlaybackMode: mode,
		})
		srv := &http.Server{Handler: gw, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 120 * time.Second}
		httpServers = append(httpServers, srv)
		g.Go(func() error {
			log.Info(gctx, "starting HTTP gateway", logging.String("addr", l.http.Addr().String()))
			return serveHTTP(srv, l.http)
		})
	}

	if l.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rpcMetrics.Handler())
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		httpServers = append(httpServers, srv)
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", l.metrics.Addr().String()))
			return serveHTTP(srv, l.metrics)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down impact server")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range httpServers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn(shutdownCtx, "http shutdown failed", logging.Err(err))
			}
		}
		return nil
	})

	return g.Wait()
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve %s: %w", lis.Addr(), err)
	}
	return nil
}

// loadCatalog seeds the built-in presets and merges the optional file.
func loadCatalog(ctx context.Context, path string, log logging.Logger) (*kb.KnowledgeBase, error) {
	catalog := kb.NewDefaultKnowledgeBase()
	if path == "" {
		return catalog, nil
	}

	unsubscribe := catalog.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventPresetReplaced {
			log.Warn(ctx, "preset file overrides built-in preset", logging.String("preset", ev.Preset.Name))
		}
	})
	defer unsubscribe()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	defer f.Close()

	n, err := catalog.LoadPresets(f, kb.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load presets from %s: %w", path, err)
	}
	log.Info(ctx, "loaded presets", logging.String("path", path), logging.Int("count", n))
	return catalog, nil
}

// siteClock parses the -site-epoch flag.
func siteClock(raw string) (func() time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "now":
		return time.Now, nil
	}
	epoch, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("site epoch: %w", err)
	}
	return func() time.Time { return epoch }, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
