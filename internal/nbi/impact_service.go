package nbi

import (
	"context"
	"time"

	"github.com/signalsfoundry/impact-simulator/core"
	"github.com/signalsfoundry/impact-simulator/internal/logging"
	"github.com/signalsfoundry/impact-simulator/internal/memo"
	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/model"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "impact.v1.ImpactService"

// Full method names, as seen by interceptors.
const (
	ComputeImpactMethod     = "/" + ServiceName + "/ComputeImpact"
	ComputeTrajectoryMethod = "/" + ServiceName + "/ComputeTrajectory"
	SimulateMethod          = "/" + ServiceName + "/Simulate"
	ListPresetsMethod       = "/" + ServiceName + "/ListPresets"
	GetPresetMethod         = "/" + ServiceName + "/GetPreset"
)

// ImpactServiceServer is the server API of the impact service.
type ImpactServiceServer interface {
	ComputeImpact(context.Context, *types.SimulationRequest) (*types.ImpactResponse, error)
	ComputeTrajectory(context.Context, *types.SimulationRequest) (*types.TrajectoryResponse, error)
	Simulate(context.Context, *types.SimulationRequest) (*types.SimulateResponse, error)
	ListPresets(context.Context, *types.ListPresetsRequest) (*types.ListPresetsResponse, error)
	GetPreset(context.Context, *types.GetPresetRequest) (*types.GetPresetResponse, error)
}

// ImpactServiceDesc describes the service for grpc.Server.RegisterService.
var ImpactServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ImpactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ComputeImpact", Handler: unaryHandler(ComputeImpactMethod, ImpactServiceServer.ComputeImpact)},
		{MethodName: "ComputeTrajectory", Handler: unaryHandler(ComputeTrajectoryMethod, ImpactServiceServer.ComputeTrajectory)},
		{MethodName: "Simulate", Handler: unaryHandler(SimulateMethod, ImpactServiceServer.Simulate)},
		{MethodName: "ListPresets", Handler: unaryHandler(ListPresetsMethod, ImpactServiceServer.ListPresets)},
		{MethodName: "GetPreset", Handler: unaryHandler(GetPresetMethod, ImpactServiceServer.GetPreset)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "impact/v1/impact_service",
}

// RegisterImpactServiceServer registers srv on s.
func RegisterImpactServiceServer(s grpc.ServiceRegistrar, srv ImpactServiceServer) {
	s.RegisterService(&ImpactServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(ImpactServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ImpactServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ImpactServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OutcomeRecorder receives what the service computed. It is satisfied by
// observability.OutcomeCollector.
type OutcomeRecorder interface {
	ObserveReport(threat string, tntTons float64)
	ObserveTrajectory(willImpact bool)
	SetReportCacheHitRatio(ratio float64)
}

// ImpactService implements ImpactServiceServer on top of the pure core
// computations.
//
// Semantics:
//   - Every request names its body either inline or through a catalog preset.
//   - Simulate is served from the memo cache when one is configured; the
//     single-computation methods always compute.
//   - When a site clock is configured, impacting trajectories carry the
//     geodetic location of their surface entry at the clock's epoch.
type ImpactService struct {
	catalog  PresetCatalog
	log      logging.Logger
	cache    *memo.Cache
	outcomes OutcomeRecorder
	siteNow  func() time.Time
}

// Option configures an ImpactService.
type Option func(*ImpactService)

// WithCache memoizes Simulate results.
func WithCache(c *memo.Cache) Option {
	return func(s *ImpactService) { s.cache = c }
}

// WithOutcomeRecorder reports computed outcomes, typically to Prometheus.
func WithOutcomeRecorder(r OutcomeRecorder) Option {
	return func(s *ImpactService) { s.outcomes = r }
}

// WithSiteClock enables impact site location, evaluated at the epoch now
// returns for each request.
func WithSiteClock(now func() time.Time) Option {
	return func(s *ImpactService) { s.siteNow = now }
}

// NewImpactService constructs the service. catalog may be nil, in which case
// preset lookups fail with InvalidArgument.
func NewImpactService(catalog PresetCatalog, log logging.Logger, opts ...Option) *ImpactService {
	if log == nil {
		log = logging.Noop()
	}
	s := &ImpactService{catalog: catalog, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeImpact returns the impact report for one body and deflection.
func (s *ImpactService) ComputeImpact(ctx context.Context, req *types.SimulationRequest) (*types.ImpactResponse, error) {
	p, d, err := ResolveRequest(req, s.catalog)
	if err != nil {
		return nil, s.fail(ctx, "ComputeImpact", err)
	}
	report, err := s.computeReport(ctx, req, p, d)
	if err != nil {
		return nil, s.fail(ctx, "ComputeImpact", err)
	}
	return &types.ImpactResponse{Report: types.ReportToWire(report)}, nil
}

// ComputeTrajectory returns the approach path and impact verdict.
func (s *ImpactService) ComputeTrajectory(ctx context.Context, req *types.SimulationRequest) (*types.TrajectoryResponse, error) {
	p, d, err := ResolveRequest(req, s.catalog)
	if err != nil {
		return nil, s.fail(ctx, "ComputeTrajectory", err)
	}
	tr, err := s.computeTrajectory(ctx, req, p, d)
	if err != nil {
		return nil, s.fail(ctx, "ComputeTrajectory", err)
	}
	return &types.TrajectoryResponse{Trajectory: types.TrajectoryToWire(tr, s.locate(ctx, tr))}, nil
}

// Simulate returns the report and the trajectory for the same input.
func (s *ImpactService) Simulate(ctx context.Context, req *types.SimulationRequest) (*types.SimulateResponse, error) {
	p, d, err := ResolveRequest(req, s.catalog)
	if err != nil {
		return nil, s.fail(ctx, "Simulate", err)
	}

	ctx, span := startComputeSpan(ctx, "memo.Simulate", req.Preset, p, d)
	res, hit, err := s.cache.Simulate(p, d)
	span.SetAttributes(attribute.Bool("cache_hit", hit))
	endSpan(span, err)
	if err != nil {
		return nil, s.fail(ctx, "Simulate", err)
	}
	if s.cache != nil && s.outcomes != nil {
		s.outcomes.SetReportCacheHitRatio(s.cache.HitRatio())
	}
	s.record(res.Report, res.Trajectory)

	s.logger(ctx).Debug(ctx, "simulation computed",
		logging.String("threat", res.Report.Threat().Slug()),
		logging.Float64("tnt_tons", res.Report.TNTEquivalentTons),
		logging.Bool("will_impact", res.Trajectory.WillImpact),
		logging.Bool("cache_hit", hit),
	)

	return &types.SimulateResponse{
		Report:     types.ReportToWire(res.Report),
		Trajectory: types.TrajectoryToWire(res.Trajectory, s.locate(ctx, res.Trajectory)),
		Cached:     hit,
	}, nil
}

// ListPresets returns every catalog preset sorted by name.
func (s *ImpactService) ListPresets(ctx context.Context, _ *types.ListPresetsRequest) (*types.ListPresetsResponse, error) {
	if s.catalog == nil {
		return &types.ListPresetsResponse{Presets: []types.Preset{}}, nil
	}
	return &types.ListPresetsResponse{Presets: types.PresetsToWire(s.catalog.ListPresets())}, nil
}

// GetPreset returns one preset by case-insensitive name.
func (s *ImpactService) GetPreset(ctx context.Context, req *types.GetPresetRequest) (*types.GetPresetResponse, error) {
	name, err := ValidatePresetName(req)
	if err != nil {
		return nil, s.fail(ctx, "GetPreset", err)
	}
	if s.catalog == nil {
		return nil, s.fail(ctx, "GetPreset", ErrInvalidRequest)
	}
	p, err := s.catalog.GetPreset(name)
	if err != nil {
		return nil, s.fail(ctx, "GetPreset", err)
	}
	return &types.GetPresetResponse{Preset: types.PresetToWire(p)}, nil
}

func (s *ImpactService) computeReport(ctx context.Context, req *types.SimulationRequest, p model.AsteroidParameters, d model.DeflectionImpulse) (core.ImpactReport, error) {
	_, span := startComputeSpan(ctx, "core.ComputeImpactReport", req.Preset, p, d)
	report, err := core.ComputeImpactReport(p, d)
	if err != nil {
		endSpan(span, err)
		return core.ImpactReport{}, err
	}
	span.SetAttributes(attribute.String("threat", report.Threat().Slug()))
	endSpan(span, nil)

	if s.outcomes != nil {
		s.outcomes.ObserveReport(report.Threat().Slug(), report.TNTEquivalentTons)
	}
	return report, nil
}

func (s *ImpactService) computeTrajectory(ctx context.Context, req *types.SimulationRequest, p model.AsteroidParameters, d model.DeflectionImpulse) (core.Trajectory, error) {
	_, span := startComputeSpan(ctx, "core.ComputeTrajectory", req.Preset, p, d)
	tr, err := core.ComputeTrajectory(p, d)
	if err != nil {
		endSpan(span, err)
		return core.Trajectory{}, err
	}
	span.SetAttributes(attribute.Bool("will_impact", tr.WillImpact))
	endSpan(span, nil)

	if s.outcomes != nil {
		s.outcomes.ObserveTrajectory(tr.WillImpact)
	}
	return tr, nil
}

func (s *ImpactService) record(r core.ImpactReport, tr core.Trajectory) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.ObserveReport(r.Threat().Slug(), r.TNTEquivalentTons)
	s.outcomes.ObserveTrajectory(tr.WillImpact)
}

// locate returns nil when site location is disabled or the body misses.
func (s *ImpactService) locate(ctx context.Context, tr core.Trajectory) *core.ImpactSite {
	if s.siteNow == nil || !tr.WillImpact {
		return nil
	}
	site, err := core.LocateImpactSite(tr, s.siteNow())
	if err != nil {
		s.logger(ctx).Warn(ctx, "impact site lookup failed", logging.Err(err))
		return nil
	}
	return &site
}

func (s *ImpactService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// fail logs and maps err. Client mistakes are logged at debug level only.
func (s *ImpactService) fail(ctx context.Context, op string, err error) error {
	st := ToStatusError(err)
	if isClientError(err) {
		s.logger(ctx).Debug(ctx, op+" rejected", logging.Err(err))
	} else {
		s.logger(ctx).Error(ctx, op+" failed", logging.Err(err))
	}
	return st
}
