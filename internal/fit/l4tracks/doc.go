// Package l4tracks owns Layer 4 (Tracks) of the track-fitting data model.
//
// Responsibilities: combining the independent R-Z and conformal-view fits
// of a road into physical track candidates, the per-road track cap, and
// the default-track policy for roads without a fit.
// Key types: Track, Config, Fitter, RoadResult.
//
// Dependency rule: L4 may depend on L1-L3.
// No SQL/database code is allowed in this package.
package l4tracks
