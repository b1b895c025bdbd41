package l1hits

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitDerivedCoordinates(t *testing.T) {
	t.Parallel()

	h := Hit{X: 3, Y: 4, Z: 10}
	assert.InDelta(t, 5.0, h.Rho(), 1e-12)
	assert.InDelta(t, math.Atan2(4, 3), h.Phi(), 1e-12)
	assert.InDelta(t, 3.0/25.0, h.U(), 1e-12)
	assert.InDelta(t, 4.0/25.0, h.V(), 1e-12)
}

func TestHitValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hit     Hit
		wantErr bool
	}{
		{"regular hit", Hit{X: 20, Y: 1, Z: 3, ZErr: 0.1}, false},
		{"on beam axis", Hit{X: 0, Y: 0, Z: 3}, true},
		{"nan coordinate", Hit{X: math.NaN(), Y: 1}, true},
		{"infinite error", Hit{X: 1, Y: 1, ZErr: math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hit.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInputMalformed))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoadValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Road{}.Validate(), "empty road is valid")

	r := Road{Hits: []Hit{{X: 1, Y: 1}, {X: 0, Y: 0}}}
	err := r.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputMalformed)
	assert.Contains(t, err.Error(), "hit 1")

	decodeErr := fmt.Errorf("%w: hitYs has 1 entries, hitXs has 2", ErrInputMalformed)
	assert.Equal(t, decodeErr, Road{DecodeErr: decodeErr}.Validate())
}

func TestRoadColumns(t *testing.T) {
	t.Parallel()

	t.Run("consistent columns", func(t *testing.T) {
		c := RoadColumns{
			NHitLayers:       2,
			BankIndex:        42,
			HitXs:            []float64{22, 35},
			HitYs:            []float64{1, 2},
			HitZs:            []float64{5, 7},
			HitXErrors:       []float64{0.01, 0.01},
			HitYErrors:       []float64{0.01, 0.01},
			HitZErrors:       []float64{0.1, 0.1},
			HitCharges:       []int{1, -1},
			HitPts:           []float64{3.5, 4},
			HitSuperstripIDs: []uint32{7, 9},
		}
		r, err := c.Road()
		require.NoError(t, err)
		require.Len(t, r.Hits, 2)
		assert.Equal(t, 2, r.NHitLayers)
		assert.Equal(t, uint32(42), r.BankIndex)
		assert.Equal(t, Hit{X: 35, Y: 2, Z: 7, XErr: 0.01, YErr: 0.01, ZErr: 0.1, Charge: -1, Pt: 4, SuperstripID: 9}, r.Hits[1])
		assert.Equal(t, c, r.Columns())
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		c := RoadColumns{
			BankIndex:  3,
			HitXs:      []float64{22, 35},
			HitYs:      []float64{1},
			HitZs:      []float64{5, 7},
			HitXErrors: []float64{0, 0}, HitYErrors: []float64{0, 0}, HitZErrors: []float64{0, 0},
			HitCharges: []int{0, 0}, HitPts: []float64{0, 0}, HitSuperstripIDs: []uint32{0, 0},
		}
		r, err := c.Road()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInputMalformed)
		assert.Contains(t, err.Error(), "hitYs")
		assert.Equal(t, uint32(3), r.BankIndex)
		assert.Empty(t, r.Hits)
	})
}

func TestEventNHits(t *testing.T) {
	t.Parallel()

	ev := Event{ID: 1, Roads: []Road{{Hits: make([]Hit, 3)}, {}, {Hits: make([]Hit, 2)}}}
	assert.Equal(t, 5, ev.NHits())
}
