package roadio

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackfit/internal/fit/l1hits"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
	"github.com/banshee-data/trackfit/internal/fit/pipeline"
	"github.com/banshee-data/trackfit/internal/testutil"
)

func encodeLines(t *testing.T, events []l1hits.Event) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		require.NoError(t, enc.Encode(RecordOf(ev)))
	}
	return buf.String()
}

func TestReadEventsFormats(t *testing.T) {
	t.Parallel()

	events := testutil.Events(4, 1)

	lines := encodeLines(t, events)
	got, err := ReadEvents(strings.NewReader(lines), -1)
	require.NoError(t, err)
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("JSON lines mismatch (-want +got):\n%s", diff)
	}

	recs := make([]EventRecord, len(events))
	for i, ev := range events {
		recs[i] = RecordOf(ev)
	}
	arr, err := json.MarshalIndent(recs, "", "  ")
	require.NoError(t, err)
	got, err = ReadEvents(bytes.NewReader(append([]byte("\n  "), arr...)), -1)
	require.NoError(t, err)
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("JSON array mismatch (-want +got):\n%s", diff)
	}

	got, err = ReadEvents(strings.NewReader(lines), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadEventsEmptyAndIDs(t *testing.T) {
	t.Parallel()

	got, err := ReadEvents(strings.NewReader("  \n"), -1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadEvents(strings.NewReader(`{"roads":[]}`+"\n"+`{"id":42,"roads":[]}`+"\n"+`{"roads":[]}`), -1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{0, 42, 2}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestReadEventsMalformedRoadKept(t *testing.T) {
	t.Parallel()

	in := `{"id":1,"roads":[{"nHitLayers":6,"hitXs":[1,2],"hitYs":[1],"hitZs":[1,2],` +
		`"hitXErrors":[0,0],"hitYErrors":[0,0],"hitZErrors":[0,0],"hitCharges":[1,1],` +
		`"hitPts":[0,0],"hitSuperstripIds":[0,0]}]}`
	got, err := ReadEvents(strings.NewReader(in), -1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Roads, 1)
	road := got[0].Roads[0]
	assert.True(t, errors.Is(road.Validate(), l1hits.ErrInputMalformed))
	assert.Contains(t, road.DecodeErr.Error(), "hitYs")
	assert.Equal(t, 6, road.NHitLayers)
}

func TestReadEventsSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := ReadEvents(strings.NewReader(`{"roads":[]}`+"\n"+`{"roads":`), -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event record 1")

	_, err = ReadEvents(strings.NewReader(`[{"roads":[]}, 7]`), -1)
	require.Error(t, err)
}

func TestReadEventsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(encodeLines(t, testutil.Events(3, 1))), 0o644))
	got, err := ReadEventsFile(path, -1)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = ReadEventsFile(filepath.Join(dir, "events.csv"), -1)
	assert.Error(t, err)
}

func TestResultWriter(t *testing.T) {
	t.Parallel()

	results := []pipeline.EventResult{
		{EventID: 0},
		{EventID: 1, Tracks: []l4tracks.Track{
			{Px: 3, Py: 4, Pz: 0, VZ: 1.5, RInv: 0.002, Chi2: 0.5, PtConsistency: 0.01, NStubs: 6},
			{},
		}},
	}
	var buf bytes.Buffer
	w := NewResultWriter(&buf)
	require.NoError(t, w.WriteAll(results))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "one line per event, even without tracks")

	var empty TrackColumns
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &empty))
	assert.Equal(t, int64(0), empty.EventID)
	assert.Empty(t, empty.Px)

	var cols TrackColumns
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &cols))
	assert.Equal(t, []float64{5, 0}, cols.Pt)
	assert.Equal(t, []float64{1.5, 0}, cols.VZ)
	assert.Equal(t, []int{6, 0}, cols.NStubs)
	assert.Equal(t, []float64{0.01, 0}, cols.PtConsistency)
	assert.Contains(t, lines[1], `"ptconsistency"`)
}
