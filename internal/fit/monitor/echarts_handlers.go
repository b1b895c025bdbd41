package monitor

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackfit/internal/fit/l3retina"
	"github.com/banshee-data/trackfit/internal/httputil"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleGridChart re-fits one stored road and renders the voting grid of a
// view as an echarts heat map.
// Query params:
//   - event (required)
//   - road (optional; default 0)
//   - view (optional; zr or uv, default zr)
func (ws *WebServer) handleGridChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "fit DB not configured")
		return
	}
	q := r.URL.Query()
	eventID, err := strconv.ParseInt(q.Get("event"), 10, 64)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "event must be an integer")
		return
	}
	roadIndex := 0
	if v := q.Get("road"); v != "" {
		if roadIndex, err = strconv.Atoi(v); err != nil || roadIndex < 0 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "road must be a non-negative integer")
			return
		}
	}
	view := q.Get("view")
	if view == "" {
		view = "zr"
	}
	if view != "zr" && view != "uv" {
		httputil.WriteJSONError(w, http.StatusBadRequest, "view must be zr or uv")
		return
	}

	ev, err := ws.db.LoadEvent(r.Context(), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("event %d not found", eventID))
		return
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if roadIndex >= len(ev.Roads) {
		httputil.WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("event %d has %d roads", eventID, len(ev.Roads)))
		return
	}

	res, zrGrid, uvGrid := ws.fitter.FitRoadWithGrids(roadIndex, ev.Roads[roadIndex])
	if res.Err != nil {
		httputil.WriteJSONError(w, http.StatusUnprocessableEntity, res.Err.Error())
		return
	}
	grid, params := zrGrid, res.ParamsZR
	if view == "uv" {
		grid, params = uvGrid, res.ParamsUV
	}

	hm := gridHeatMap(grid, params, fmt.Sprintf("event %d road %d (%s)", eventID, roadIndex, view))
	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render grid chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func gridHeatMap(g *l3retina.Grid, params []l3retina.TrackParam, title string) *charts.HeatMap {
	pLabels := make([]string, g.PBins())
	for i := range pLabels {
		pLabels[i] = strconv.FormatFloat(g.PCenter(i), 'g', 4, 64)
	}
	qLabels := make([]string, g.QBins())
	for j := range qLabels {
		qLabels[j] = strconv.FormatFloat(g.QCenter(j), 'g', 4, 64)
	}

	data := make([]opts.HeatMapData, 0, g.PBins()*g.QBins())
	for i := 0; i < g.PBins(); i++ {
		for j := 0; j < g.QBins(); j++ {
			if w := g.At(i, j); w > 0 {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{i, j, w}})
			}
		}
	}
	maxW := g.Max()
	if maxW <= 0 {
		maxW = 1
	}

	subtitle := fmt.Sprintf("hits=%d maxima=%d", g.NHits(), len(params))
	if len(params) > 0 {
		subtitle += fmt.Sprintf(" best: %v", params[0])
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track fit grid", Width: "1000px", Height: "700px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "p"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "q", Data: qLabels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxW),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	hm.SetXAxis(pLabels).AddSeries("weight", data)
	return hm
}
