// Package monitor renders diagnostics for the road fitter: PNG heat maps of
// the voting grids, an HTTP server with interactive grid charts, stored
// tracks, Prometheus metrics and the database debug console.
package monitor
