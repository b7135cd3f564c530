// Package monitoring holds the diagnostic logger shared by the lidar-tools
// packages. Commands configure the standard logger (flags, prefix); library
// code logs through Logf so tests can mute or capture it.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that prepends tag to every message before handing
// it to the current Logf. The lookup of Logf happens per call, so a later
// SetLogger also redirects loggers created earlier.
func Prefixed(tag string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf("["+tag+"] "+format, v...)
	}
}
