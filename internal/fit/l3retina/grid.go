package l3retina

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trackfit/internal/fit/l2views"
)

// Grid is the accumulated vote weight over a PBins x QBins parameter space.
// Row i spans p in [PMin+i*PWidth, PMin+(i+1)*PWidth); column j likewise
// for q. A Grid belongs to one (road, view) fit and is never reused.
type Grid struct {
	cfg   Config
	w     *mat.Dense
	nHits int
}

// NewGrid returns an all-zero grid for the configured ranges.
func NewGrid(cfg Config) *Grid {
	return &Grid{cfg: cfg, w: mat.NewDense(cfg.PBins, cfg.QBins, nil)}
}

// PBins returns the number of p bins.
func (g *Grid) PBins() int { return g.cfg.PBins }

// QBins returns the number of q bins.
func (g *Grid) QBins() int { return g.cfg.QBins }

// NHits returns the number of hits voted into the grid.
func (g *Grid) NHits() int { return g.nHits }

// PWidth returns the p bin width.
func (g *Grid) PWidth() float64 { return (g.cfg.PMax - g.cfg.PMin) / float64(g.cfg.PBins) }

// QWidth returns the q bin width.
func (g *Grid) QWidth() float64 { return (g.cfg.QMax - g.cfg.QMin) / float64(g.cfg.QBins) }

// PCenter returns the p value at the centre of row i.
func (g *Grid) PCenter(i int) float64 { return g.cfg.PMin + (float64(i)+0.5)*g.PWidth() }

// QCenter returns the q value at the centre of column j.
func (g *Grid) QCenter(j int) float64 { return g.cfg.QMin + (float64(j)+0.5)*g.QWidth() }

// At returns the weight of bin (i, j).
func (g *Grid) At(i, j int) float64 { return g.w.At(i, j) }

// bin returns the bin containing (p, q); ok is false outside the ranges.
func (g *Grid) bin(p, q float64) (i, j int, ok bool) {
	if p < g.cfg.PMin || p >= g.cfg.PMax || q < g.cfg.QMin || q >= g.cfg.QMax {
		return 0, 0, false
	}
	i = int((p - g.cfg.PMin) / g.PWidth())
	j = int((q - g.cfg.QMin) / g.QWidth())
	return min(i, g.cfg.PBins-1), min(j, g.cfg.QBins-1), true
}

// wrapP maps a p index that may have stepped one bin off the grid back onto
// it. Off-grid indices are only valid on a periodic azimuth axis.
func (g *Grid) wrapP(i int) (int, bool) {
	np := g.cfg.PBins
	switch {
	case i >= 0 && i < np:
		return i, true
	case !g.cfg.periodicP():
		return 0, false
	}
	return (i%np + np) % np, true
}

// Total returns the summed weight of all bins.
func (g *Grid) Total() float64 { return mat.Sum(g.w) }

// Max returns the largest bin weight.
func (g *Grid) Max() float64 { return mat.Max(g.w) }

// Weights returns a row-major copy of the bin weights.
func (g *Grid) Weights() []float64 {
	out := make([]float64, 0, g.cfg.PBins*g.cfg.QBins)
	for i := 0; i < g.cfg.PBins; i++ {
		out = append(out, mat.Row(nil, i, g.w)...)
	}
	return out
}

// Dims, Z, X and Y implement gonum/plot's plotter.GridXYZ with p along the
// x axis and q along the y axis.
func (g *Grid) Dims() (c, r int)   { return g.cfg.PBins, g.cfg.QBins }
func (g *Grid) Z(c, r int) float64 { return g.w.At(c, r) }
func (g *Grid) X(c int) float64    { return g.PCenter(c) }
func (g *Grid) Y(r int) float64    { return g.QCenter(r) }

// FillGrid votes every hit into a fresh grid. Each hit adds
// exp(-res²/2σ²) to every bin, so a bin never exceeds len(hits).
// Hits are voted in a canonical order so that any permutation of the
// input produces a bit-identical grid.
func FillGrid[T l2views.Point](hits []T, h Hypothesis[T], cfg Config) *Grid {
	g := NewGrid(cfg)
	g.nHits = len(hits)
	if len(hits) == 0 {
		return g
	}

	ordered := canonicalOrder(hits)
	invTwoSigma2 := make([]float64, len(ordered))
	for k, hit := range ordered {
		s := cfg.kernelSigma(hit.Sigma())
		invTwoSigma2[k] = 1 / (2 * s * s)
	}

	row := make([]float64, cfg.QBins)
	vote := make([]float64, cfg.QBins)
	for i := 0; i < cfg.PBins; i++ {
		p := g.PCenter(i)
		for j := range row {
			row[j] = 0
		}
		for k, hit := range ordered {
			for j := range vote {
				r := h.Residual(hit, p, g.QCenter(j))
				vote[j] = math.Exp(-r * r * invTwoSigma2[k])
			}
			floats.Add(row, vote)
		}
		g.w.SetRow(i, row)
	}
	return g
}

func canonicalOrder[T l2views.Point](hits []T) []T {
	ordered := make([]T, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(a, b int) bool {
		a0, a1 := ordered[a].Coords()
		b0, b1 := ordered[b].Coords()
		if a0 != b0 {
			return a0 < b0
		}
		if a1 != b1 {
			return a1 < b1
		}
		return ordered[a].Sigma() < ordered[b].Sigma()
	})
	return ordered
}
