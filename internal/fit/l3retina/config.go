package l3retina

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfigInvalid marks a grid configuration that would make every fit
// meaningless. It is reported before any road is processed.
var ErrConfigInvalid = errors.New("invalid fit configuration")

// HypothesisType selects the (p, q) parameterisation of a view.
type HypothesisType string

const (
	// HypothesisZRLine: z = p*r + q, p = cot(theta), q = z0.
	HypothesisZRLine HypothesisType = "zr_line"
	// HypothesisUVCurvature: u*sin(p) - v*cos(p) = kappa(q)/2, p = phi0,
	// q = charge/pt.
	HypothesisUVCurvature HypothesisType = "uv_curvature"
)

// AssociationWindow is the residual cut, in kernel widths, for counting a
// hit as a stub of a fitted candidate.
const AssociationWindow = 3.0

// Config is the operating point of one view's voting grid.
type Config struct {
	Hypothesis   HypothesisType `json:"hypothesis" yaml:"hypothesis"`
	PBins        int            `json:"pbins" yaml:"pbins"`
	QBins        int            `json:"qbins" yaml:"qbins"`
	PMin         float64        `json:"pmin" yaml:"pmin"`
	PMax         float64        `json:"pmax" yaml:"pmax"`
	QMin         float64        `json:"qmin" yaml:"qmin"`
	QMax         float64        `json:"qmax" yaml:"qmax"`
	Sigma        float64        `json:"sigma" yaml:"sigma"`
	MinWeight    float64        `json:"min_weight" yaml:"min_weight"`
	UseHitErrors bool           `json:"use_hit_errors" yaml:"use_hit_errors"`
}

// Validate rejects configurations that cannot produce a usable grid.
func (c Config) Validate() error {
	switch c.Hypothesis {
	case HypothesisZRLine, HypothesisUVCurvature:
	default:
		return fmt.Errorf("%w: unknown hypothesis type %q", ErrConfigInvalid, c.Hypothesis)
	}
	if c.PBins <= 0 || c.QBins <= 0 {
		return fmt.Errorf("%w: bin counts must be positive, got pbins=%d qbins=%d", ErrConfigInvalid, c.PBins, c.QBins)
	}
	for _, v := range []float64{c.PMin, c.PMax, c.QMin, c.QMax, c.Sigma, c.MinWeight} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrConfigInvalid)
		}
	}
	if c.PMin >= c.PMax {
		return fmt.Errorf("%w: pmin %g must be below pmax %g", ErrConfigInvalid, c.PMin, c.PMax)
	}
	if c.QMin >= c.QMax {
		return fmt.Errorf("%w: qmin %g must be below qmax %g", ErrConfigInvalid, c.QMin, c.QMax)
	}
	if c.Sigma <= 0 {
		return fmt.Errorf("%w: sigma must be positive, got %g", ErrConfigInvalid, c.Sigma)
	}
	if c.MinWeight < 0 {
		return fmt.Errorf("%w: min_weight must be non-negative, got %g", ErrConfigInvalid, c.MinWeight)
	}
	return nil
}

// periodicTolerance is how far, in radians, a conformal p range may be from
// 2π and still be treated as one full turn. It admits ±3.14159 written by hand.
const periodicTolerance = 1e-4

// periodicP reports whether p is an azimuth spanning one full turn, in which
// case the first and last p bins are neighbours.
func (c Config) periodicP() bool {
	return c.Hypothesis == HypothesisUVCurvature && math.Abs(c.PMax-c.PMin-2*math.Pi) <= periodicTolerance
}

// kernelSigma returns the Gaussian width used for a hit with the given
// measurement uncertainty.
func (c Config) kernelSigma(hitSigma float64) float64 {
	if !c.UseHitErrors || hitSigma <= 0 {
		return c.Sigma
	}
	return math.Sqrt(c.Sigma*c.Sigma + hitSigma*hitSigma)
}

// DefaultZRConfig returns the R-Z operating point for the outer tracker:
// |eta| < 2.5 and |z0| < 15 cm.
func DefaultZRConfig() Config {
	return Config{
		Hypothesis: HypothesisZRLine,
		PBins:      400,
		QBins:      60,
		PMin:       -6.1,
		PMax:       6.1,
		QMin:       -15,
		QMax:       15,
		Sigma:      1.5,
		MinWeight:  3.5,
	}
}

// DefaultUVConfig returns the transverse operating point: full azimuth and
// pt above 2 GeV. The azimuth range is periodic, see FindMaxima.
func DefaultUVConfig() Config {
	return Config{
		Hypothesis: HypothesisUVCurvature,
		PBins:      512,
		QBins:      40,
		PMin:       -math.Pi,
		PMax:       math.Pi,
		QMin:       -0.5,
		QMax:       0.5,
		Sigma:      3e-4,
		MinWeight:  3.0,
	}
}
