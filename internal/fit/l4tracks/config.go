package l4tracks

import (
	"fmt"
	"math"

	"github.com/banshee-data/trackfit/internal/fit/l3retina"
)

// Config is the full operating point of the road fitter.
type Config struct {
	ZR               l3retina.Config `json:"zr" yaml:"zr"`
	UV               l3retina.Config `json:"uv" yaml:"uv"`
	BField           float64         `json:"b_field" yaml:"b_field"` // Tesla
	MaxTracksPerRoad int             `json:"max_tracks_per_road" yaml:"max_tracks_per_road"`
}

// DefaultConfig returns the production operating point.
func DefaultConfig() Config {
	return Config{
		ZR:               l3retina.DefaultZRConfig(),
		UV:               l3retina.DefaultUVConfig(),
		BField:           3.8,
		MaxTracksPerRoad: 1,
	}
}

// Validate checks both grids and the assembler settings. Any error wraps
// l3retina.ErrConfigInvalid and must stop the run before the first road.
func (c Config) Validate() error {
	if err := c.ZR.Validate(); err != nil {
		return fmt.Errorf("zr view: %w", err)
	}
	if c.ZR.Hypothesis != l3retina.HypothesisZRLine {
		return fmt.Errorf("zr view: %w: hypothesis %q does not apply to the R-Z view", l3retina.ErrConfigInvalid, c.ZR.Hypothesis)
	}
	if err := c.UV.Validate(); err != nil {
		return fmt.Errorf("uv view: %w", err)
	}
	if c.UV.Hypothesis != l3retina.HypothesisUVCurvature {
		return fmt.Errorf("uv view: %w: hypothesis %q does not apply to the conformal view", l3retina.ErrConfigInvalid, c.UV.Hypothesis)
	}
	if c.BField <= 0 || math.IsNaN(c.BField) || math.IsInf(c.BField, 0) {
		return fmt.Errorf("%w: b_field must be positive, got %g", l3retina.ErrConfigInvalid, c.BField)
	}
	if c.MaxTracksPerRoad <= 0 {
		return fmt.Errorf("%w: max_tracks_per_road must be positive, got %d", l3retina.ErrConfigInvalid, c.MaxTracksPerRoad)
	}
	return nil
}
