// Package monitoring carries the process-wide diagnostic logger. Analysis
// and storage code log through Logf so embedders and tests can redirect or
// mute diagnostics without touching the stdlib log configuration.
package monitoring

import "log"

// Logf writes one diagnostic line. Defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger swaps the diagnostic sink. A nil argument mutes diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
