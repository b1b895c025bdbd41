// Package l3retina owns Layer 3 (Retina) of the track-fitting data model.
//
// Responsibilities: the weighted-voting parameter-space search. Every hit
// of a view votes into a dense (p, q) grid with a Gaussian kernel of its
// residual to the line hypothesis at each bin centre; local maxima of the
// grid are mapped back to track parameters.
// Key types: Config, Hypothesis, Grid, TrackParam.
//
// Both fit views share FillGrid and FindMaxima; a view only contributes
// its Hypothesis (residual and inverse parameter map).
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
// No SQL/database code is allowed in this package.
package l3retina
