// Package l1hits owns Layer 1 (Hits) of the track-fitting data model.
//
// Responsibilities: hit and road records as delivered by the upstream
// pattern-recognition stage, conversion from the columnar per-branch
// layout, and input validation.
// Key types: Hit, Road, RoadColumns, Event.
//
// Dependency rule: L1 depends on nothing else in internal/fit.
// No SQL/database code is allowed in this package.
package l1hits
