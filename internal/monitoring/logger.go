// Package monitoring holds the shared diagnostic logger used across the
// comparison pipeline. Anomaly reports (points outside the model, points not
// contained by any candidate block) go through Logf so batch runs can mute or
// redirect them.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be swapped with SetLogger; tests typically install a recording func.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil argument installs a no-op
// logger, which silences diagnostics entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
