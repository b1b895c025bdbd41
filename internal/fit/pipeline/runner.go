package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/monitoring"
)

// DefaultProgressEvery is the progress-line interval in events.
const DefaultProgressEvery = 5000

// Verbosity levels gating Runner log output.
const (
	VerbositySummary  = 1 // final summary line
	VerbosityProgress = 2 // periodic progress lines
	VerbosityDebug    = 3 // per-road candidates
)

// EventResult holds the fit of one event. Tracks is the flattened, capped
// track list that gets written out; Roads keeps the per-road detail for the
// roads that were fitted before the cap was reached.
type EventResult struct {
	EventID int64
	Roads   []l4tracks.RoadResult
	Tracks  []l4tracks.Track
}

// Fitted reports whether at least one road of the event produced a real
// candidate.
func (r EventResult) Fitted() bool {
	for _, rr := range r.Roads {
		if rr.Fitted() {
			return true
		}
	}
	return false
}

// TrackRoads returns the index of the road each entry of Tracks came from.
func (r EventResult) TrackRoads() []int {
	out := make([]int, 0, len(r.Tracks))
	for _, rr := range r.Roads {
		for range rr.Tracks {
			if len(out) == len(r.Tracks) {
				return out
			}
			out = append(out, rr.RoadIndex)
		}
	}
	return out
}

// Malformed returns the number of rejected roads.
func (r EventResult) Malformed() int {
	n := 0
	for _, rr := range r.Roads {
		if rr.Err != nil {
			n++
		}
	}
	return n
}

// Summary aggregates a run. Every processed event is kept (written out);
// Fitted counts events with at least one real candidate.
type Summary struct {
	Processed int
	Kept      int
	Fitted    int
	Roads     int
	Malformed int
	Tracks    int
}

func (s Summary) String() string {
	return fmt.Sprintf("Processed %d events, kept %d, fitted %d", s.Processed, s.Kept, s.Fitted)
}

// Runner drives a Fitter over a sequence of events.
type Runner struct {
	Fitter *l4tracks.Fitter
	// Workers bounds the number of events fitted concurrently.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int
	// MaxTracksPerEvent stops an event's road loop once this many tracks
	// are collected. Zero means unlimited.
	MaxTracksPerEvent int
	// ProgressEvery is the progress interval; zero means
	// DefaultProgressEvery.
	ProgressEvery int
	Verbosity     int
}

// NewRunner returns a Runner with default worker and progress settings.
func NewRunner(f *l4tracks.Fitter) *Runner {
	return &Runner{Fitter: f, Verbosity: VerbositySummary}
}

// FitEvent fits the roads of ev in input order.
func (r *Runner) FitEvent(ev l1hits.Event) EventResult {
	res := EventResult{EventID: ev.ID}
	for i, road := range ev.Roads {
		start := time.Now()
		rr := r.Fitter.FitRoad(i, road)
		monitoring.RoadFitDuration.Observe(time.Since(start).Seconds())
		r.recordRoad(ev.ID, rr)

		res.Roads = append(res.Roads, rr)
		res.Tracks = append(res.Tracks, rr.Tracks...)
		if r.MaxTracksPerEvent > 0 && len(res.Tracks) >= r.MaxTracksPerEvent {
			res.Tracks = res.Tracks[:r.MaxTracksPerEvent]
			break
		}
	}
	monitoring.TracksEmitted.Add(float64(len(res.Tracks)))
	return res
}

func (r *Runner) recordRoad(eventID int64, rr l4tracks.RoadResult) {
	monitoring.CandidatesPerView.WithLabelValues("zr").Observe(float64(len(rr.ParamsZR)))
	monitoring.CandidatesPerView.WithLabelValues("uv").Observe(float64(len(rr.ParamsUV)))
	switch {
	case rr.Err != nil:
		monitoring.RoadsProcessed.WithLabelValues(monitoring.ResultMalformed).Inc()
		monitoring.Verbosef(r.Verbosity >= VerbosityDebug, "... evt: %d road: %d rejected: %v", eventID, rr.RoadIndex, rr.Err)
		return
	case rr.Fitted():
		monitoring.RoadsProcessed.WithLabelValues(monitoring.ResultFitted).Inc()
	default:
		monitoring.RoadsProcessed.WithLabelValues(monitoring.ResultDefault).Inc()
	}
	if r.Verbosity >= VerbosityDebug {
		monitoring.Logf("... evt: %d road: %d # params zr: %d uv: %d", eventID, rr.RoadIndex, len(rr.ParamsZR), len(rr.ParamsUV))
		for _, p := range rr.ParamsZR {
			monitoring.Logf("... ... zr: %v", p)
		}
		for _, p := range rr.ParamsUV {
			monitoring.Logf("... ... uv: %v", p)
		}
	}
}

// Run fits events concurrently and returns their results in input order.
// It stops early with ctx.Err() when the context is cancelled.
func (r *Runner) Run(ctx context.Context, events []l1hits.Event) ([]EventResult, Summary, error) {
	if r.Fitter == nil {
		return nil, Summary{}, errors.New("pipeline: runner has no fitter")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	every := r.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	results := make([]EventResult, len(events))
	var (
		mu   sync.Mutex
		summ Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.FitEvent(events[i])
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			summ.add(res)
			if r.Verbosity >= VerbosityProgress && summ.Processed%every == 0 {
				monitoring.Logf("... Processing event: %7d, keeping: %7d, fitting: %7d", summ.Processed, summ.Kept, summ.Fitted)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, summ, err
	}
	if err := ctx.Err(); err != nil {
		return nil, summ, err
	}

	monitoring.Verbosef(r.Verbosity >= VerbositySummary, "%s", summ)
	return results, summ, nil
}

func (s *Summary) add(res EventResult) {
	s.Processed++
	s.Kept++
	s.Roads += len(res.Roads)
	s.Malformed += res.Malformed()
	s.Tracks += len(res.Tracks)
	outcome := "kept"
	if res.Fitted() {
		s.Fitted++
		outcome = "fitted"
	}
	monitoring.EventsProcessed.WithLabelValues(outcome).Inc()
}
