package nbi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/signalsfoundry/impact-simulator/internal/nbi/types"
	"github.com/signalsfoundry/impact-simulator/model"
)

// ErrInvalidRequest marks structurally malformed requests, as opposed to
// parameters the physics rejects.
var ErrInvalidRequest = errors.New("invalid request")

// PresetCatalog is the read side of the preset knowledge base.
type PresetCatalog interface {
	GetPreset(name string) (model.Preset, error)
	ListPresets() []model.Preset
}

// ResolveRequest selects the asteroid parameters named by req, either inline
// or through a catalog preset, and returns them with the requested deflection.
// Numeric ranges are checked later by the core package.
func ResolveRequest(req *types.SimulationRequest, catalog PresetCatalog) (model.AsteroidParameters, model.DeflectionImpulse, error) {
	if req == nil {
		return model.AsteroidParameters{}, model.DeflectionImpulse{}, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	preset := strings.TrimSpace(req.Preset)
	d := types.DeflectionFromWire(req.Deflection)

	switch {
	case req.Asteroid != nil && preset != "":
		return model.AsteroidParameters{}, d, fmt.Errorf("%w: asteroid and preset are mutually exclusive", ErrInvalidRequest)
	case req.Asteroid != nil:
		return types.AsteroidFromWire(req.Asteroid), d, nil
	case preset != "":
		if catalog == nil {
			return model.AsteroidParameters{}, d, fmt.Errorf("%w: no preset catalog configured", ErrInvalidRequest)
		}
		p, err := catalog.GetPreset(preset)
		if err != nil {
			return model.AsteroidParameters{}, d, err
		}
		return p.Parameters.WithDefaults(), d, nil
	default:
		return model.AsteroidParameters{}, d, fmt.Errorf("%w: one of asteroid or preset is required", ErrInvalidRequest)
	}
}

// ValidatePresetName checks a GetPreset request.
func ValidatePresetName(req *types.GetPresetRequest) (string, error) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	return strings.TrimSpace(req.Name), nil
}
