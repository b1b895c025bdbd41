package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts events by outcome: "fitted" when at least one
	// road produced a candidate, "kept" otherwise.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackfit_events_total",
		Help: "Events processed by outcome",
	}, []string{"outcome"})

	// RoadsProcessed counts roads by result: fitted, default or malformed.
	RoadsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackfit_roads_total",
		Help: "Roads processed by result",
	}, []string{"result"})

	// TracksEmitted counts tracks written, default tracks included.
	TracksEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackfit_tracks_total",
		Help: "Tracks emitted, including default tracks",
	})

	// RoadFitDuration tracks per-road fit latency.
	RoadFitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackfit_road_fit_duration_seconds",
		Help:    "Road fit duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	})

	// CandidatesPerView tracks the number of grid maxima per road and view.
	CandidatesPerView = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackfit_view_candidates",
		Help:    "Grid maxima above threshold per road",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
	}, []string{"view"})
)

// Road result labels.
const (
	ResultFitted    = "fitted"
	ResultDefault   = "default"
	ResultMalformed = "malformed"
)
