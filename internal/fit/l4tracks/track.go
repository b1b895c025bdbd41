package l4tracks

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l3retina"
)

// Track is a fitted track candidate. Momentum is in GeV, the point of
// closest approach in cm.
type Track struct {
	Px, Py, Pz    float64
	VX, VY, VZ    float64
	RInv          float64
	Chi2          float64
	PtConsistency float64
	NStubs        int
	Charge        int
}

// Pt returns the transverse momentum.
func (t Track) Pt() float64 { return math.Hypot(t.Px, t.Py) }

// Phi returns the momentum azimuth.
func (t Track) Phi() float64 { return math.Atan2(t.Py, t.Px) }

// Eta returns the momentum pseudorapidity, 0 for a zero-pt track.
func (t Track) Eta() float64 {
	pt := t.Pt()
	if pt == 0 {
		return 0
	}
	return math.Asinh(t.Pz / pt)
}

func (t Track) String() string {
	return fmt.Sprintf("pt=%.3f eta=%.4f phi=%.4f vz=%.3f rinv=%.3g chi2=%.3f nstubs=%d",
		t.Pt(), t.Eta(), t.Phi(), t.VZ, t.RInv, t.Chi2, t.NStubs)
}

// Combine builds a track from the R-Z candidate (eta, dz) and the
// conformal-view candidate (pt, phi, curvature). The longitudinal momentum
// is only defined when pt > 0.
func Combine(zr, uv l3retina.TrackParam, hits []l1hits.Hit) Track {
	t := Track{
		Px:     uv.Pt * math.Cos(uv.Phi),
		Py:     uv.Pt * math.Sin(uv.Phi),
		VZ:     zr.Dz,
		RInv:   uv.RInv,
		Chi2:   zr.Chi2 + uv.Chi2,
		NStubs: min(zr.NHits, uv.NHits),
		Charge: uv.Charge,
	}
	if uv.Pt > 0 {
		t.Pz = uv.Pt * math.Sinh(zr.Eta)
	}
	t.PtConsistency = ptConsistency(hits, uv.Q)
	return t
}

// ptConsistency is the mean |charge/pt| mismatch, in 1/GeV, between the
// stub-level momentum estimates and the fitted charge/pt. Stubs without a
// pt estimate are skipped. Terms are summed in sorted order so the result
// does not depend on hit order.
func ptConsistency(hits []l1hits.Hit, qOverPt float64) float64 {
	dev := make([]float64, 0, len(hits))
	for _, h := range hits {
		if h.Pt <= 0 {
			continue
		}
		dev = append(dev, math.Abs(float64(h.Charge)/h.Pt-qOverPt))
	}
	if len(dev) == 0 {
		return 0
	}
	sort.Float64s(dev)
	return floats.Sum(dev) / float64(len(dev))
}
