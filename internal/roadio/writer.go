package roadio

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/banshee-data/trackfit/internal/fit/pipeline"
)

// TrackColumns is the per-event output layout: one slice per track
// attribute.
type TrackColumns struct {
	EventID       int64     `json:"id"`
	Px            []float64 `json:"px"`
	Py            []float64 `json:"py"`
	Pz            []float64 `json:"pz"`
	Pt            []float64 `json:"pt"`
	Eta           []float64 `json:"eta"`
	Phi           []float64 `json:"phi"`
	VX            []float64 `json:"vx"`
	VY            []float64 `json:"vy"`
	VZ            []float64 `json:"vz"`
	RInv          []float64 `json:"rinv"`
	Chi2          []float64 `json:"chi2"`
	PtConsistency []float64 `json:"ptconsistency"`
	NStubs        []int     `json:"nstubs"`
}

// Columns lays out the tracks of an event result.
func Columns(res pipeline.EventResult) TrackColumns {
	n := len(res.Tracks)
	c := TrackColumns{
		EventID:       res.EventID,
		Px:            make([]float64, n),
		Py:            make([]float64, n),
		Pz:            make([]float64, n),
		Pt:            make([]float64, n),
		Eta:           make([]float64, n),
		Phi:           make([]float64, n),
		VX:            make([]float64, n),
		VY:            make([]float64, n),
		VZ:            make([]float64, n),
		RInv:          make([]float64, n),
		Chi2:          make([]float64, n),
		PtConsistency: make([]float64, n),
		NStubs:        make([]int, n),
	}
	for i, t := range res.Tracks {
		c.Px[i], c.Py[i], c.Pz[i] = t.Px, t.Py, t.Pz
		c.Pt[i], c.Eta[i], c.Phi[i] = t.Pt(), t.Eta(), t.Phi()
		c.VX[i], c.VY[i], c.VZ[i] = t.VX, t.VY, t.VZ
		c.RInv[i] = t.RInv
		c.Chi2[i] = t.Chi2
		c.PtConsistency[i] = t.PtConsistency
		c.NStubs[i] = t.NStubs
	}
	return c
}

// ResultWriter writes one JSON line per event, including events without
// tracks. Call Flush when done.
type ResultWriter struct {
	bw  *bufio.Writer
	enc *json.Encoder
	n   int
}

// NewResultWriter returns a writer on w.
func NewResultWriter(w io.Writer) *ResultWriter {
	bw := bufio.NewWriter(w)
	return &ResultWriter{bw: bw, enc: json.NewEncoder(bw)}
}

// Write appends one event.
func (w *ResultWriter) Write(res pipeline.EventResult) error {
	if err := w.enc.Encode(Columns(res)); err != nil {
		return err
	}
	w.n++
	return nil
}

// WriteAll appends every event in order.
func (w *ResultWriter) WriteAll(results []pipeline.EventResult) error {
	for _, res := range results {
		if err := w.Write(res); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of events written.
func (w *ResultWriter) Count() int { return w.n }

// Flush writes buffered output.
func (w *ResultWriter) Flush() error { return w.bw.Flush() }
