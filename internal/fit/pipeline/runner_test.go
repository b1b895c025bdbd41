package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/monitoring"
	"github.com/banshee-data/trackfit/internal/testutil"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()
	f, err := l4tracks.NewFitter(testutil.FitConfig())
	require.NoError(t, err)
	return NewRunner(f)
}

// captureLog redirects monitoring.Logf for the duration of the test.
func captureLog(t *testing.T) func() []string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	original := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func TestFitEvent(t *testing.T) {
	r := newRunner(t)

	t.Run("no roads", func(t *testing.T) {
		res := r.FitEvent(l1hits.Event{ID: 4})
		assert.Equal(t, int64(4), res.EventID)
		assert.Empty(t, res.Tracks)
		assert.False(t, res.Fitted())
	})

	t.Run("one track per road", func(t *testing.T) {
		ev := testutil.Events(3, 2)[2] // two helix roads and an empty one
		res := r.FitEvent(ev)
		require.Len(t, res.Roads, 3)
		require.Len(t, res.Tracks, 3)
		assert.True(t, res.Fitted())
		assert.InDelta(t, 8.0, res.Tracks[0].Pt(), 1e-6)
		assert.Equal(t, l4tracks.Track{}, res.Tracks[2], "empty road yields the default track")
	})

	t.Run("malformed road", func(t *testing.T) {
		bad := testutil.HelixRoad(3.8, testutil.TruthA)
		bad.Hits[0].X, bad.Hits[0].Y = 0, 0
		res := r.FitEvent(l1hits.Event{Roads: []l1hits.Road{bad, testutil.HelixRoad(3.8, testutil.TruthA)}})
		assert.Equal(t, 1, res.Malformed())
		require.Len(t, res.Tracks, 2)
		assert.Equal(t, l4tracks.Track{}, res.Tracks[0])
		assert.True(t, res.Fitted())
	})
}

func TestFitEventMaxTracksPerEvent(t *testing.T) {
	r := newRunner(t)
	r.MaxTracksPerEvent = 2

	ev := testutil.Events(1, 5)[0]
	res := r.FitEvent(ev)
	assert.Len(t, res.Tracks, 2)
	assert.Len(t, res.Roads, 2, "road loop stops once the cap is reached")
}

func TestRunPreservesOrder(t *testing.T) {
	events := testutil.Events(40, 1)

	serial := newRunner(t)
	serial.Workers = 1
	want, wantSum, err := serial.Run(context.Background(), events)
	require.NoError(t, err)

	parallel := newRunner(t)
	parallel.Workers = 8
	got, gotSum, err := parallel.Run(context.Background(), events)
	require.NoError(t, err)

	require.Len(t, got, len(events))
	for i, res := range got {
		assert.Equal(t, events[i].ID, res.EventID)
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b error) bool { return a == b })); diff != "" {
		t.Errorf("parallel results differ from serial (-want +got):\n%s", diff)
	}
	assert.Equal(t, wantSum, gotSum)
}

func TestRunSummaryAndLogging(t *testing.T) {
	lines := captureLog(t)

	r := newRunner(t)
	r.Workers = 2
	r.ProgressEvery = 5
	r.Verbosity = VerbosityProgress

	events := testutil.Events(9, 1)
	events = append(events, l1hits.Event{ID: 9})
	_, sum, err := r.Run(context.Background(), events)
	require.NoError(t, err)

	assert.Equal(t, Summary{Processed: 10, Kept: 10, Fitted: 9, Roads: 12, Tracks: 12}, sum)

	var progress int
	for _, l := range lines() {
		if strings.HasPrefix(l, "... Processing event:") {
			progress++
		}
	}
	assert.Equal(t, 2, progress)
	assert.Contains(t, lines(), "Processed 10 events, kept 10, fitted 9")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newRunner(t).Run(ctx, testutil.Events(10, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWithoutFitter(t *testing.T) {
	_, _, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestTrackRoads(t *testing.T) {
	r := newRunner(t)
	r.MaxTracksPerEvent = 3

	res := r.FitEvent(testutil.Events(3, 4)[2])
	assert.Equal(t, []int{0, 1, 2}, res.TrackRoads())

	r.MaxTracksPerEvent = 0
	res = r.FitEvent(testutil.Events(3, 2)[2])
	assert.Equal(t, []int{0, 1, 2}, res.TrackRoads())
}
