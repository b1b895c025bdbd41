// Package pipeline runs the road fitter over whole events.
//
// Responsibilities: the per-event road loop with its track cap, bounded
// concurrent fitting with ordered results, progress and summary logging,
// and run metrics.
// Key types: Runner, EventResult, Summary.
//
// Dependency rule: pipeline may depend on L1-L4 and monitoring.
// Persistence stays with the caller (internal/db, internal/roadio).
package pipeline
