package l3retina

import (
	"math"

	"github.com/banshee-data/trackfit/internal/fit/l2views"
)

// ParamMapper converts a (p, q) bin centre back to track parameters.
type ParamMapper interface {
	Param(p, q float64) TrackParam
}

// Hypothesis is the capability a fit view provides to the shared grid
// algorithm: the residual of a hit to the line labelled (p, q), and the
// inverse parameter map.
type Hypothesis[T l2views.Point] interface {
	ParamMapper
	Residual(hit T, p, q float64) float64
}

// ZRLine is the straight line z = p*r + q of the longitudinal view.
type ZRLine struct{}

// Residual implements Hypothesis.
func (ZRLine) Residual(hit l2views.ZR, p, q float64) float64 {
	return hit.Z - (p*hit.R + q)
}

// Param maps slope and intercept to pseudorapidity and vertex z.
// p = cot(theta) = sinh(eta).
func (ZRLine) Param(p, q float64) TrackParam {
	return TrackParam{
		Eta: math.Asinh(p),
		Dz:  q,
		P:   p,
		Q:   q,
	}
}

// UVCurvature is the conformal-view image of a circle through the origin
// with initial azimuth p and charge/pt q.
type UVCurvature struct {
	BField float64 // Tesla
}

// Residual implements Hypothesis. The line equation alone is symmetric
// under (p+π, -q), so a hit behind the track direction p, where
// u·cos p + v·sin p <= 0, gets an infinite residual and casts no vote.
func (c UVCurvature) Residual(hit l2views.UV, p, q float64) float64 {
	sin, cos := math.Sincos(p)
	if hit.U*cos+hit.V*sin <= 0 {
		return math.Inf(1)
	}
	return hit.U*sin - hit.V*cos - 0.5*l2views.PtToCurvature(q, c.BField)
}

// Param maps azimuth and charge/pt to transverse parameters. A bin at
// q == 0 has no defined pt and is reported with pt 0.
func (c UVCurvature) Param(p, q float64) TrackParam {
	tp := TrackParam{
		Phi:  p,
		RInv: l2views.PtToCurvature(q, c.BField),
		P:    p,
		Q:    q,
	}
	switch {
	case q > 0:
		tp.Pt = 1 / q
		tp.Charge = 1
	case q < 0:
		tp.Pt = -1 / q
		tp.Charge = -1
	}
	return tp
}

// Verify at compile time that the view hypotheses implement Hypothesis.
var (
	_ Hypothesis[l2views.ZR] = ZRLine{}
	_ Hypothesis[l2views.UV] = UVCurvature{}
)
