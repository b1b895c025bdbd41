package l3retina

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridFromRows builds a grid with hand-set weights; rows index p, columns q.
func gridFromRows(t *testing.T, nHits int, rows [][]float64) (*Grid, Config) {
	t.Helper()
	cfg := Config{
		Hypothesis: HypothesisZRLine,
		PBins:      len(rows),
		QBins:      len(rows[0]),
		PMin:       0,
		PMax:       float64(len(rows)),
		QMin:       0,
		QMax:       float64(len(rows[0])),
		Sigma:      1,
		MinWeight:  1,
	}
	require.NoError(t, cfg.Validate())
	g := NewGrid(cfg)
	g.nHits = nHits
	for i, row := range rows {
		g.w.SetRow(i, row)
	}
	return g, cfg
}

func bins(params []TrackParam) [][2]int {
	out := make([][2]int, len(params))
	for k, p := range params {
		out[k] = [2]int{p.PBin, p.QBin}
	}
	return out
}

func TestFindMaximaOrdering(t *testing.T) {
	t.Parallel()

	g, cfg := gridFromRows(t, 10, [][]float64{
		{3, 0, 0, 7},
		{0, 0, 0, 0},
		{5, 0, 0, 0},
	})
	params := FindMaxima(g, ZRLine{}, cfg)
	assert.Equal(t, [][2]int{{0, 3}, {2, 0}, {0, 0}}, bins(params))
	assert.Equal(t, []float64{7, 5, 3}, []float64{params[0].Weight, params[1].Weight, params[2].Weight})
	assert.Equal(t, g.PCenter(0), params[0].P)
	assert.Equal(t, g.QCenter(3), params[0].Q)
}

func TestFindMaximaMinWeightIsExclusive(t *testing.T) {
	t.Parallel()

	g, cfg := gridFromRows(t, 2, [][]float64{
		{1, 0},
		{0, 0.5},
	})
	assert.Empty(t, FindMaxima(g, ZRLine{}, cfg), "weight equal to min_weight is rejected")
}

func TestFindMaximaPlateau(t *testing.T) {
	t.Parallel()

	t.Run("reported once at lowest index", func(t *testing.T) {
		g, cfg := gridFromRows(t, 5, [][]float64{
			{0, 5, 5, 0},
			{0, 5, 0, 0},
			{0, 0, 0, 0},
		})
		assert.Equal(t, [][2]int{{0, 1}}, bins(FindMaxima(g, ZRLine{}, cfg)))
	})

	t.Run("suppressed by heavier border", func(t *testing.T) {
		g, cfg := gridFromRows(t, 6, [][]float64{
			{0, 5, 5, 6},
			{0, 5, 0, 0},
			{0, 0, 0, 0},
		})
		assert.Equal(t, [][2]int{{0, 3}}, bins(FindMaxima(g, ZRLine{}, cfg)))
	})

	t.Run("non-convex plateau", func(t *testing.T) {
		g, cfg := gridFromRows(t, 5, [][]float64{
			{5, 0, 5},
			{5, 0, 5},
			{5, 5, 5},
		})
		assert.Equal(t, [][2]int{{0, 0}}, bins(FindMaxima(g, ZRLine{}, cfg)))
	})

	t.Run("diagonal neighbours are connected", func(t *testing.T) {
		g, cfg := gridFromRows(t, 4, [][]float64{
			{0, 4, 0},
			{4, 0, 0},
			{0, 0, 0},
		})
		assert.Equal(t, [][2]int{{0, 1}}, bins(FindMaxima(g, ZRLine{}, cfg)))
	})
}

func TestFindMaximaDiagonalSuppression(t *testing.T) {
	t.Parallel()

	g, cfg := gridFromRows(t, 5, [][]float64{
		{4, 0, 0},
		{0, 4.5, 0},
		{0, 0, 2},
	})
	assert.Equal(t, [][2]int{{1, 1}}, bins(FindMaxima(g, ZRLine{}, cfg)))
}

func TestChi2Proxy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, chi2Proxy(0, 0))
	assert.Equal(t, 0.0, chi2Proxy(4, 4))

	// Three hits each one sigma off the line: Σ r²/σ² = 3.
	w := 3 * math.Exp(-0.5)
	assert.InDelta(t, 3.0, chi2Proxy(3, w), 1e-12)
}

func TestPeakSpread(t *testing.T) {
	t.Parallel()

	g, _ := gridFromRows(t, 5, [][]float64{
		{0, 0, 0},
		{0, 5, 0},
		{0, 0, 0},
	})
	sp, sq := g.peakSpread(1, 1)
	assert.Equal(t, 0.0, sp, "single non-zero bin has no spread")
	assert.Equal(t, 0.0, sq)

	g, _ = gridFromRows(t, 5, [][]float64{
		{0, 2, 0},
		{0, 4, 0},
		{0, 2, 0},
	})
	sp, sq = g.peakSpread(1, 1)
	assert.Greater(t, sp, 0.0)
	assert.Equal(t, 0.0, sq)
}

// periodicGrid builds a hand-set grid whose p axis covers one full turn.
func periodicGrid(t *testing.T, rows [][]float64) (*Grid, Config) {
	t.Helper()
	cfg := Config{
		Hypothesis: HypothesisUVCurvature,
		PBins:      len(rows),
		QBins:      len(rows[0]),
		PMin:       -math.Pi,
		PMax:       math.Pi,
		QMin:       -0.5,
		QMax:       0.5,
		Sigma:      1e-4,
		MinWeight:  1,
	}
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.periodicP())
	g := NewGrid(cfg)
	g.nHits = 6
	for i, row := range rows {
		g.w.SetRow(i, row)
	}
	return g, cfg
}

func TestFindMaximaWrapsAzimuthSeam(t *testing.T) {
	t.Parallel()
	m := UVCurvature{BField: 3.8}

	g, cfg := periodicGrid(t, [][]float64{
		{0, 4, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 5, 0},
	})
	assert.Equal(t, [][2]int{{4, 1}}, bins(FindMaxima(g, m, cfg)), "last row outweighs its neighbour across the seam")

	g, cfg = periodicGrid(t, [][]float64{
		{0, 5, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 5, 0},
	})
	assert.Equal(t, [][2]int{{0, 1}}, bins(FindMaxima(g, m, cfg)), "plateau across the seam reported once")

	// The same weights on a non-periodic axis give two maxima.
	g, cfg = gridFromRows(t, 6, [][]float64{
		{0, 4, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 5, 0},
	})
	assert.Len(t, FindMaxima(g, ZRLine{}, cfg), 2)
}

func TestPeakSpreadAcrossSeam(t *testing.T) {
	t.Parallel()

	g, _ := periodicGrid(t, [][]float64{
		{0, 2, 0},
		{0, 0, 0},
		{0, 0, 0},
		{0, 2, 0},
		{0, 4, 0},
	})
	sp, sq := g.peakSpread(4, 1)
	// Weights 2, 4, 2 one bin apart: Σw·d² = 4 bins², unbiased over Σw-1 = 7.
	assert.InDelta(t, math.Sqrt(4.0/7)*g.PWidth(), sp, 1e-9)
	assert.Equal(t, 0.0, sq)
}
