package l1hits

import "fmt"

// Road is a candidate group of hits matched to one pattern-bank entry.
type Road struct {
	NHitLayers int
	BankIndex  uint32
	Hits       []Hit
	// DecodeErr is set when the road could not be decoded from its
	// columns. Such a road is kept so the fitter can report it.
	DecodeErr error
}

// Validate checks every hit of the road. A road with zero hits is valid;
// it simply yields no fit candidates.
func (r Road) Validate() error {
	if r.DecodeErr != nil {
		return r.DecodeErr
	}
	for i, h := range r.Hits {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("hit %d: %w", i, err)
		}
	}
	return nil
}

// Event groups the roads found in one bunch crossing.
type Event struct {
	ID    int64
	Roads []Road
}

// NHits returns the total number of hits over all roads of the event.
func (e Event) NHits() int {
	n := 0
	for _, r := range e.Roads {
		n += len(r.Hits)
	}
	return n
}

// RoadColumns is the per-branch layout used by the road ntuples: one slice
// per hit attribute, all expected to have the same length.
type RoadColumns struct {
	NHitLayers       int       `json:"nHitLayers"`
	BankIndex        uint32    `json:"bankIndex"`
	HitXs            []float64 `json:"hitXs"`
	HitYs            []float64 `json:"hitYs"`
	HitZs            []float64 `json:"hitZs"`
	HitXErrors       []float64 `json:"hitXErrors"`
	HitYErrors       []float64 `json:"hitYErrors"`
	HitZErrors       []float64 `json:"hitZErrors"`
	HitCharges       []int     `json:"hitCharges"`
	HitPts           []float64 `json:"hitPts"`
	HitSuperstripIDs []uint32  `json:"hitSuperstripIds"`
}

// Road assembles the columns into a Road. Columns whose length differs from
// HitXs make the road malformed.
func (c RoadColumns) Road() (Road, error) {
	n := len(c.HitXs)
	lengths := []struct {
		name string
		n    int
	}{
		{"hitYs", len(c.HitYs)},
		{"hitZs", len(c.HitZs)},
		{"hitXErrors", len(c.HitXErrors)},
		{"hitYErrors", len(c.HitYErrors)},
		{"hitZErrors", len(c.HitZErrors)},
		{"hitCharges", len(c.HitCharges)},
		{"hitPts", len(c.HitPts)},
		{"hitSuperstripIds", len(c.HitSuperstripIDs)},
	}
	for _, l := range lengths {
		if l.n != n {
			return Road{NHitLayers: c.NHitLayers, BankIndex: c.BankIndex},
				fmt.Errorf("%w: %s has %d entries, hitXs has %d", ErrInputMalformed, l.name, l.n, n)
		}
	}

	var hits []Hit
	if n > 0 {
		hits = make([]Hit, n)
	}
	for j := 0; j < n; j++ {
		hits[j] = Hit{
			X:            c.HitXs[j],
			Y:            c.HitYs[j],
			Z:            c.HitZs[j],
			XErr:         c.HitXErrors[j],
			YErr:         c.HitYErrors[j],
			ZErr:         c.HitZErrors[j],
			Charge:       c.HitCharges[j],
			Pt:           c.HitPts[j],
			SuperstripID: c.HitSuperstripIDs[j],
		}
	}
	return Road{NHitLayers: c.NHitLayers, BankIndex: c.BankIndex, Hits: hits}, nil
}

// Columns is the inverse of RoadColumns.Road.
func (r Road) Columns() RoadColumns {
	c := RoadColumns{
		NHitLayers:       r.NHitLayers,
		BankIndex:        r.BankIndex,
		HitXs:            make([]float64, len(r.Hits)),
		HitYs:            make([]float64, len(r.Hits)),
		HitZs:            make([]float64, len(r.Hits)),
		HitXErrors:       make([]float64, len(r.Hits)),
		HitYErrors:       make([]float64, len(r.Hits)),
		HitZErrors:       make([]float64, len(r.Hits)),
		HitCharges:       make([]int, len(r.Hits)),
		HitPts:           make([]float64, len(r.Hits)),
		HitSuperstripIDs: make([]uint32, len(r.Hits)),
	}
	for j, h := range r.Hits {
		c.HitXs[j] = h.X
		c.HitYs[j] = h.Y
		c.HitZs[j] = h.Z
		c.HitXErrors[j] = h.XErr
		c.HitYErrors[j] = h.YErr
		c.HitZErrors[j] = h.ZErr
		c.HitCharges[j] = h.Charge
		c.HitPts[j] = h.Pt
		c.HitSuperstripIDs[j] = h.SuperstripID
	}
	return c
}
