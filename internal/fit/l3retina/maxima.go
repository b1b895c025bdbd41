package l3retina

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trackfit/internal/fit/l2views"
)

// TrackParam is one grid maximum mapped back to track parameters. Which
// physical fields are filled depends on the view: the R-Z view sets Eta and
// Dz, the conformal view sets Pt, Phi, RInv and Charge.
type TrackParam struct {
	Pt     float64
	Phi    float64
	Eta    float64
	Dz     float64
	RInv   float64
	Charge int
	Chi2   float64

	Weight float64 // peak bin weight
	P, Q   float64 // bin centre
	PBin   int
	QBin   int
	SigmaP float64 // weighted spread of p over the 3x3 peak neighbourhood
	SigmaQ float64
	NHits  int // hits within AssociationWindow of the peak line
}

func (p TrackParam) String() string {
	return fmt.Sprintf("pt=%.3f phi=%.4f eta=%.4f dz=%.3f chi2=%.3f w=%.3f (p=%.5g, q=%.5g)",
		p.Pt, p.Phi, p.Eta, p.Dz, p.Chi2, p.Weight, p.P, p.Q)
}

// neighbours8 lists the 8-connected offsets, in scan order.
var neighbours8 = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// FindMaxima returns the local maxima of g as track parameters, best first.
//
// A bin is a maximum when its weight exceeds cfg.MinWeight and none of its
// 8 neighbours is strictly heavier. On a periodic azimuth axis the first and
// last p rows are neighbours, so a peak on the ±π seam is reported once. Equal-weight 8-connected bins form a
// plateau, which is reported once, at its lowest row-major index, and only
// when no bin bordering the plateau is strictly heavier. Ties in the output
// ordering keep row-major order.
func FindMaxima(g *Grid, m ParamMapper, cfg Config) []TrackParam {
	np, nq := g.PBins(), g.QBins()
	visited := make([]bool, np*nq)
	var out []TrackParam

	for i := 0; i < np; i++ {
		for j := 0; j < nq; j++ {
			if visited[i*nq+j] {
				continue
			}
			w := g.At(i, j)
			if w <= cfg.MinWeight {
				continue
			}
			if !g.isPlateauMaximum(i, j, visited) {
				continue
			}

			tp := m.Param(g.PCenter(i), g.QCenter(j))
			tp.Weight = w
			tp.PBin, tp.QBin = i, j
			tp.Chi2 = chi2Proxy(g.NHits(), w)
			tp.SigmaP, tp.SigmaQ = g.peakSpread(i, j)
			out = append(out, tp)
		}
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	return out
}

// isPlateauMaximum flood-fills the equal-weight region containing (i, j),
// marking it visited, and reports whether no bordering bin is heavier.
// (i, j) is the first unvisited bin of the region in scan order, hence its
// lowest index.
func (g *Grid) isPlateauMaximum(i, j int, visited []bool) bool {
	nq := g.QBins()
	w := g.At(i, j)
	isMax := true

	stack := [][2]int{{i, j}}
	visited[i*nq+j] = true
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbours8 {
			ni, ok := g.wrapP(c[0] + d[0])
			nj := c[1] + d[1]
			if !ok || nj < 0 || nj >= nq {
				continue
			}
			nw := g.At(ni, nj)
			switch {
			case nw > w:
				isMax = false
			case nw == w && !visited[ni*nq+nj]:
				visited[ni*nq+nj] = true
				stack = append(stack, [2]int{ni, nj})
			}
		}
	}
	return isMax
}

// chi2Proxy is -2 Σ ln(w_k) evaluated as if the n hits shared the peak
// weight W evenly. It is exactly Σ r²/σ² when all residuals are equal and
// zero when every hit lies on the peak line.
func chi2Proxy(n int, w float64) float64 {
	fn := float64(n)
	if n == 0 || w >= fn {
		return 0
	}
	return 2 * fn * math.Log(fn/w)
}

// peakSpread returns the weighted standard deviation of the bin centres in
// the 3x3 neighbourhood of (i, j).
func (g *Grid) peakSpread(i, j int) (sp, sq float64) {
	var ps, qs, ws []float64
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			ni, ok := g.wrapP(i + di)
			nj := j + dj
			if !ok || nj < 0 || nj >= g.QBins() {
				continue
			}
			// Unwrapped, so the spread is not inflated across the seam.
			ps = append(ps, g.PCenter(i)+float64(di)*g.PWidth())
			qs = append(qs, g.QCenter(nj))
			ws = append(ws, g.At(ni, nj))
		}
	}
	_, sp = stat.MeanStdDev(ps, ws)
	_, sq = stat.MeanStdDev(qs, ws)
	return finiteOrZero(sp), finiteOrZero(sq)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FitView runs the full retina search for one view: fill, find maxima, and
// count the hits associated with each candidate.
func FitView[T l2views.Point](hits []T, h Hypothesis[T], cfg Config) (*Grid, []TrackParam) {
	g := FillGrid(hits, h, cfg)
	params := FindMaxima(g, h, cfg)
	for k := range params {
		params[k].NHits = countAssociated(hits, h, cfg, params[k].P, params[k].Q)
	}
	return g, params
}

func countAssociated[T l2views.Point](hits []T, h Hypothesis[T], cfg Config, p, q float64) int {
	n := 0
	for _, hit := range hits {
		if math.Abs(h.Residual(hit, p, q)) <= AssociationWindow*cfg.kernelSigma(hit.Sigma()) {
			n++
		}
	}
	return n
}
