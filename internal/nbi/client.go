package nbi

import (
	"context"

	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"google.golang.org/grpc"
)

// ImpactServiceClient calls ImpactService over a gRPC connection using the
// JSON codec.
type ImpactServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewImpactServiceClient wraps cc.
func NewImpactServiceClient(cc grpc.ClientConnInterface) *ImpactServiceClient {
	return &ImpactServiceClient{cc: cc}
}

func (c *ImpactServiceClient) ComputeImpact(ctx context.Context, in *types.SimulationRequest, opts ...grpc.CallOption) (*types.ImpactResponse, error) {
	out := new(types.ImpactResponse)
	if err := c.invoke(ctx, ComputeImpactMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ImpactServiceClient) ComputeTrajectory(ctx context.Context, in *types.SimulationRequest, opts ...grpc.CallOption) (*types.TrajectoryResponse, error) {
	out := new(types.TrajectoryResponse)
	if err := c.invoke(ctx, ComputeTrajectoryMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ImpactServiceClient) Simulate(ctx context.Context, in *types.SimulationRequest, opts ...grpc.CallOption) (*types.SimulateResponse, error) {
	out := new(types.SimulateResponse)
	if err := c.invoke(ctx, SimulateMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ImpactServiceClient) ListPresets(ctx context.Context, in *types.ListPresetsRequest, opts ...grpc.CallOption) (*types.ListPresetsResponse, error) {
	out := new(types.ListPresetsResponse)
	if err := c.invoke(ctx, ListPresetsMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ImpactServiceClient) GetPreset(ctx context.Context, in *types.GetPresetRequest, opts ...grpc.CallOption) (*types.GetPresetResponse, error) {
	out := new(types.GetPresetResponse)
	if err := c.invoke(ctx, GetPresetMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ImpactServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
