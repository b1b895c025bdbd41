package testutil

import (
	"math"
	"math/rand"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l2views"
	"github.com/banshee-data/trackfit/internal/fit/l3retina"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
)

// BarrelRadii are the six outer-tracker barrel layer radii in cm.
var BarrelRadii = []float64{23, 36, 51, 68, 88, 108}

// Helix describes a generated prompt track.
type Helix struct {
	QOverPt float64 // charge/pt in 1/GeV
	Phi0    float64
	CotTh   float64
	Z0      float64 // cm
}

// Hits returns one noiseless hit per radius on the helix in a field of
// bField Tesla. The longitudinal position follows the transverse arc length.
func (h Helix) Hits(radii []float64, bField float64) []l1hits.Hit {
	kappa := l2views.PtToCurvature(h.QOverPt, bField)
	charge := 0
	pt := 0.0
	switch {
	case h.QOverPt > 0:
		charge, pt = 1, 1/h.QOverPt
	case h.QOverPt < 0:
		charge, pt = -1, -1/h.QOverPt
	}
	hits := make([]l1hits.Hit, 0, len(radii))
	for k, r := range radii {
		x, y := l2views.HelixHit(r, h.Phi0, kappa)
		s := r
		if kappa != 0 {
			s = 2 / kappa * math.Asin(r*kappa/2)
		}
		hits = append(hits, l1hits.Hit{
			X:            x,
			Y:            y,
			Z:            h.Z0 + h.CotTh*s,
			XErr:         0.01,
			YErr:         0.01,
			ZErr:         0.1,
			Charge:       charge,
			Pt:           pt,
			SuperstripID: uint32(k),
		})
	}
	return hits
}

// HelixRoad returns a road holding the hits of the given helices on
// BarrelRadii, in generation order.
func HelixRoad(bField float64, tracks ...Helix) l1hits.Road {
	road := l1hits.Road{NHitLayers: len(BarrelRadii)}
	for _, h := range tracks {
		road.Hits = append(road.Hits, h.Hits(BarrelRadii, bField)...)
	}
	return road
}

// Smear adds Gaussian noise of the given transverse and longitudinal widths
// to every hit, using a seeded source so tests stay reproducible.
func Smear(road l1hits.Road, seed int64, sigmaXY, sigmaZ float64) l1hits.Road {
	rng := rand.New(rand.NewSource(seed))
	out := road
	out.Hits = make([]l1hits.Hit, len(road.Hits))
	for i, h := range road.Hits {
		h.X += rng.NormFloat64() * sigmaXY
		h.Y += rng.NormFloat64() * sigmaXY
		h.Z += rng.NormFloat64() * sigmaZ
		out.Hits[i] = h
	}
	return out
}

// Truth helices whose parameters sit on bin centres of FitConfig's grids.
var (
	// TruthA: pt 8 GeV, positive, 6 hits when used alone.
	TruthA = Helix{QOverPt: 0.125, Phi0: 0.31, CotTh: 0.55, Z0: 1.5}
	// TruthB: pt 4.44 GeV, negative.
	TruthB = Helix{QOverPt: -0.225, Phi0: 0.71, CotTh: 1.25, Z0: -3.5}
)

// FitConfig returns a small fitter configuration whose bin centres include
// the parameters of TruthA and TruthB.
func FitConfig() l4tracks.Config {
	return l4tracks.Config{
		ZR: l3retina.Config{
			Hypothesis: l3retina.HypothesisZRLine,
			PBins:      20,
			QBins:      20,
			PMin:       0,
			PMax:       2,
			QMin:       -10,
			QMax:       10,
			Sigma:      1.0,
			MinWeight:  3,
		},
		UV: l3retina.Config{
			Hypothesis: l3retina.HypothesisUVCurvature,
			PBins:      50,
			QBins:      20,
			PMin:       0,
			PMax:       1,
			QMin:       -0.5,
			QMax:       0.5,
			Sigma:      2e-4,
			MinWeight:  3,
		},
		BField:           3.8,
		MaxTracksPerRoad: 1,
	}
}

// Events returns n events with the given number of TruthA roads each.
// Every third event also carries an empty road.
func Events(n, roadsPerEvent int) []l1hits.Event {
	events := make([]l1hits.Event, n)
	for i := range events {
		events[i].ID = int64(i)
		for range roadsPerEvent {
			events[i].Roads = append(events[i].Roads, HelixRoad(3.8, TruthA))
		}
		if i%3 == 2 {
			events[i].Roads = append(events[i].Roads, l1hits.Road{NHitLayers: 6})
		}
	}
	return events
}
