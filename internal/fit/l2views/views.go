package l2views

import (
	"math"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
)

// CurvatureConstant converts transverse momentum to curvature:
// 1/R[cm] = CurvatureConstant * B[T] / pt[GeV].
const CurvatureConstant = 0.0029979

// Point is a hit projected into one fit view. Coords returns the abscissa and
// ordinate of the view; Sigma is the measurement uncertainty along the
// ordinate, in ordinate units.
type Point interface {
	Coords() (a, b float64)
	Sigma() float64
}

// ZR is a hit in the longitudinal view: transverse radius and z.
type ZR struct {
	R, Z float64
	Err  float64
}

// Coords implements Point.
func (p ZR) Coords() (float64, float64) { return p.R, p.Z }

// Sigma implements Point.
func (p ZR) Sigma() float64 { return p.Err }

// UV is a hit in the conformal transverse view.
type UV struct {
	U, V float64
	Err  float64
}

// Coords implements Point.
func (p UV) Coords() (float64, float64) { return p.U, p.V }

// Sigma implements Point.
func (p UV) Sigma() float64 { return p.Err }

// ToZR projects a hit into the R-Z view.
func ToZR(h l1hits.Hit) ZR {
	return ZR{R: h.Rho(), Z: h.Z, Err: h.ZErr}
}

// ToUV projects a hit into the conformal view. The transverse position error
// is propagated to first order: |d(u,v)| = |d(x,y)| / r².
func ToUV(h l1hits.Hit) UV {
	r2 := h.X*h.X + h.Y*h.Y
	return UV{
		U:   h.X / r2,
		V:   h.Y / r2,
		Err: math.Hypot(h.XErr, h.YErr) / r2,
	}
}

// Views projects every hit of a road into both views, preserving hit order.
// Callers must reject roads with hits on the beam axis first (Road.Validate).
func Views(road l1hits.Road) ([]ZR, []UV) {
	zr := make([]ZR, len(road.Hits))
	uv := make([]UV, len(road.Hits))
	for i, h := range road.Hits {
		zr[i] = ToZR(h)
		uv[i] = ToUV(h)
	}
	return zr, uv
}

// PtToCurvature returns the signed curvature 1/R for a given charge/pt.
func PtToCurvature(qOverPt, bField float64) float64 {
	return CurvatureConstant * bField * qOverPt
}

// HelixHit returns the transverse position at radius r of a track leaving the
// origin with azimuth phi0 and signed curvature kappa (positive charge bends
// clockwise in a field along +z).
func HelixHit(r, phi0, kappa float64) (x, y float64) {
	phi := phi0 - math.Asin(r*kappa/2)
	return r * math.Cos(phi), r * math.Sin(phi)
}
