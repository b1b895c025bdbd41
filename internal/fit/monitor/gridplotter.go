package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/trackfit/internal/fit/l3retina"
)

// View axis labels, indexed by view name.
var viewAxes = map[string][2]string{
	"zr": {"cot θ", "z0 (cm)"},
	"uv": {"φ0 (rad)", "q/pt (1/GeV)"},
}

// GridPlotter writes PNG heat maps of filled voting grids with the
// accepted maxima marked. It stops writing after Limit roads.
type GridPlotter struct {
	mu        sync.Mutex
	outputDir string
	limit     int
	written   int
}

// NewGridPlotter creates outputDir and returns a plotter that renders at
// most limit roads; limit <= 0 means no limit.
func NewGridPlotter(outputDir string, limit int) (*GridPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &GridPlotter{outputDir: outputDir, limit: limit}, nil
}

// Written returns the number of roads rendered so far.
func (gp *GridPlotter) Written() int {
	gp.mu.Lock()
	defer gp.mu.Unlock()
	return gp.written
}

// PlotRoad renders both view grids of a road. It returns the written paths,
// or nil once the limit is reached or when the grids are missing.
func (gp *GridPlotter) PlotRoad(eventID int64, roadIndex int, zr, uv *l3retina.Grid, zrParams, uvParams []l3retina.TrackParam) ([]string, error) {
	if zr == nil || uv == nil {
		return nil, nil
	}
	gp.mu.Lock()
	if gp.limit > 0 && gp.written >= gp.limit {
		gp.mu.Unlock()
		return nil, nil
	}
	gp.written++
	gp.mu.Unlock()

	var paths []string
	for _, v := range []struct {
		name   string
		grid   *l3retina.Grid
		params []l3retina.TrackParam
	}{
		{"zr", zr, zrParams},
		{"uv", uv, uvParams},
	} {
		path := filepath.Join(gp.outputDir, fmt.Sprintf("evt%06d_road%03d_%s.png", eventID, roadIndex, v.name))
		title := fmt.Sprintf("event %d road %d (%s)", eventID, roadIndex, v.name)
		if err := PlotGrid(v.grid, v.params, v.name, title, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// PlotGrid renders one grid as a heat map with its maxima as circles.
func PlotGrid(g *l3retina.Grid, params []l3retina.TrackParam, view, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	if axes, ok := viewAxes[view]; ok {
		p.X.Label.Text = axes[0]
		p.Y.Label.Text = axes[1]
	}

	hm := plotter.NewHeatMap(g, palette.Heat(32, 1))
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	if len(params) > 0 {
		pts := make(plotter.XYs, len(params))
		for i, tp := range params {
			pts[i] = plotter.XY{X: tp.P, Y: tp.Q}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build maxima scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Color = color.RGBA{R: 0, G: 160, B: 255, A: 255}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
	}

	if err := p.Save(7*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
