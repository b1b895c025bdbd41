package monitoring

import "log"

// Logf is the diagnostic logger shared by the fitter packages. It defaults
// to log.Printf; SetLogger redirects or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Verbosef logs only when verbose is true. Per-road diagnostics go through
// it so a normal run prints the progress lines alone.
func Verbosef(verbose bool, format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
