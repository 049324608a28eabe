package nbi

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/kb"
	"github.com/signalsfoundry/impact-simulator/model"
)

func TestResolveRequest(t *testing.T) {
	catalog := kb.NewDefaultKnowledgeBase()

	p, d, err := ResolveRequest(&types.SimulationRequest{
		Asteroid:   &types.Asteroid{DiameterM: 100, VelocityKmS: 15, EntryAngleDeg: 30},
		Deflection: types.Deflection{DeltaVKmS: 0.4},
	}, catalog)
	if err != nil {
		t.Fatalf("ResolveRequest(inline) err = %v, want nil", err)
	}
	if p.DiameterMeters != 100 || p.DensityKgPerM3 != model.DefaultDensityKgPerM3 || d.DeltaVKmPerSec != 0.4 {
		t.Fatalf("ResolveRequest(inline) = %+v %+v", p, d)
	}

	p, _, err = ResolveRequest(&types.SimulationRequest{Preset: " tunguska-1908 "}, catalog)
	if err != nil {
		t.Fatalf("ResolveRequest(preset) err = %v, want nil", err)
	}
	if p.DiameterMeters != 60 || p.DensityKgPerM3 != 2000 {
		t.Fatalf("ResolveRequest(preset) = %+v, want Tunguska parameters", p)
	}

	tests := []struct {
		name string
		req  *types.SimulationRequest
		cat  PresetCatalog
		want error
	}{
		{name: "nil", req: nil, cat: catalog, want: ErrInvalidRequest},
		{name: "empty", req: &types.SimulationRequest{}, cat: catalog, want: ErrInvalidRequest},
		{name: "both", req: &types.SimulationRequest{Asteroid: &types.Asteroid{DiameterM: 1}, Preset: "Tunguska-1908"}, cat: catalog, want: ErrInvalidRequest},
		{name: "no catalog", req: &types.SimulationRequest{Preset: "Tunguska-1908"}, cat: nil, want: ErrInvalidRequest},
		{name: "unknown preset", req: &types.SimulationRequest{Preset: "Apophis"}, cat: catalog, want: kb.ErrPresetNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ResolveRequest(tc.req, tc.cat); !errors.Is(err, tc.want) {
				t.Fatalf("ResolveRequest err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidatePresetName(t *testing.T) {
	if name, err := ValidatePresetName(&types.GetPresetRequest{Name: "  Chelyabinsk-2013 "}); err != nil || name != "Chelyabinsk-2013" {
		t.Fatalf("ValidatePresetName = (%q, %v)", name, err)
	}
	for _, req := range []*types.GetPresetRequest{nil, {Name: " "}} {
		if _, err := ValidatePresetName(req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("ValidatePresetName(%+v) err = %v, want ErrInvalidRequest", req, err)
		}
	}
}
