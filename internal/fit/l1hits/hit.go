package l1hits

import (
	"errors"
	"fmt"
	"math"
)

// ErrInputMalformed marks a road whose hits cannot be fitted: inconsistent
// per-hit array lengths, non-finite coordinates, or a hit on the beam axis.
// Fitters recover from it locally by emitting a default track for the road.
var ErrInputMalformed = errors.New("malformed road input")

// Hit is a single stub measurement. Positions are in cm in the global
// detector frame; Pt is the stub-level transverse momentum estimate in GeV.
type Hit struct {
	X, Y, Z          float64
	XErr, YErr, ZErr float64
	Charge           int
	Pt               float64
	SuperstripID     uint32
}

// Rho returns the transverse distance from the beam axis.
func (h Hit) Rho() float64 {
	return math.Hypot(h.X, h.Y)
}

// Phi returns the azimuth of the hit position.
func (h Hit) Phi() float64 {
	return math.Atan2(h.Y, h.X)
}

// U returns the first conformal coordinate x/r².
func (h Hit) U() float64 {
	return h.X / (h.X*h.X + h.Y*h.Y)
}

// V returns the second conformal coordinate y/r².
func (h Hit) V() float64 {
	return h.Y / (h.X*h.X + h.Y*h.Y)
}

// Validate reports whether the hit can be projected into both fit views.
func (h Hit) Validate() error {
	for _, v := range []float64{h.X, h.Y, h.Z, h.XErr, h.YErr, h.ZErr, h.Pt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite hit value", ErrInputMalformed)
		}
	}
	if h.X == 0 && h.Y == 0 {
		return fmt.Errorf("%w: hit on the beam axis", ErrInputMalformed)
	}
	return nil
}
