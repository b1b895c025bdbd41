package l4tracks

import (
	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l2views"
	"github.com/banshee-data/trackfit/internal/fit/l3retina"
)

// RoadResult is the outcome of fitting one road. Tracks always holds at
// least one entry: roads without a candidate in both views, and malformed
// roads, get a single default Track.
type RoadResult struct {
	RoadIndex int
	Tracks    []Track
	ParamsZR  []l3retina.TrackParam
	ParamsUV  []l3retina.TrackParam
	Err       error // non-nil when the road was rejected as malformed
}

// Fitted reports whether the road produced at least one real candidate.
func (r RoadResult) Fitted() bool {
	return r.Err == nil && len(r.ParamsZR) > 0 && len(r.ParamsUV) > 0
}

// Assemble pairs the ranked R-Z and conformal candidates (i-th with i-th)
// into tracks, best first, stopping at maxTracks. When either view has no
// candidate the road yields exactly one default track.
func Assemble(zr, uv []l3retina.TrackParam, hits []l1hits.Hit, maxTracks int) []Track {
	n := min(len(zr), len(uv))
	if n == 0 || maxTracks <= 0 {
		return []Track{{}}
	}
	tracks := make([]Track, 0, min(n, maxTracks))
	for i := 0; i < n; i++ {
		tracks = append(tracks, Combine(zr[i], uv[i], hits))
		if len(tracks) >= maxTracks {
			break
		}
	}
	return tracks
}

// Fitter fits roads with a fixed, validated configuration. It holds no
// per-road state and is safe for concurrent use.
type Fitter struct {
	cfg Config
	zr  l3retina.ZRLine
	uv  l3retina.UVCurvature
}

// NewFitter validates cfg and returns a Fitter.
func NewFitter(cfg Config) (*Fitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Fitter{
		cfg: cfg,
		uv:  l3retina.UVCurvature{BField: cfg.BField},
	}, nil
}

// Config returns the fitter configuration.
func (f *Fitter) Config() Config { return f.cfg }

// FitRoad fits one road. It never fails: a malformed road is reported in
// RoadResult.Err and still yields one default track.
func (f *Fitter) FitRoad(index int, road l1hits.Road) RoadResult {
	res, _, _ := f.FitRoadWithGrids(index, road)
	return res
}

// FitRoadWithGrids is FitRoad that also returns the filled grids of both
// views for diagnostics. The grids are nil for a malformed road.
func (f *Fitter) FitRoadWithGrids(index int, road l1hits.Road) (RoadResult, *l3retina.Grid, *l3retina.Grid) {
	res := RoadResult{RoadIndex: index}
	if err := road.Validate(); err != nil {
		res.Err = err
		res.Tracks = []Track{{}}
		return res, nil, nil
	}

	zrHits, uvHits := l2views.Views(road)
	zrGrid, zrParams := l3retina.FitView(zrHits, f.zr, f.cfg.ZR)
	uvGrid, uvParams := l3retina.FitView(uvHits, f.uv, f.cfg.UV)

	res.ParamsZR = zrParams
	res.ParamsUV = uvParams
	res.Tracks = Assemble(zrParams, uvParams, road.Hits, f.cfg.MaxTracksPerRoad)
	return res, zrGrid, uvGrid
}
