// Package log is a small wrapper around the standard library logger used by
// every traitsearch component.
//
// Each component asks for a named logger once and keeps it:
//
//	l := log.ForService("catalog")
//	l.Infof("loaded %d records from %s", n, path)
//
// Lines are rendered as "LEVEL [name>] message key=value ...". Key/value
// context is attached with With, which is how the HTTP layer tags every line
// of a request with its id:
//
//	reqLog := log.ForService("api").With("request_id", id)
//	reqLog.Infof("found %d results", total)
//
// Debug output is off by default and can be enabled globally (SetGlobalDebug,
// wired to the --debug flag) or for a single logger (EnableDebugFor).
//
// Tests redirect output with SetOutput and a bytes.Buffer.
//
// The package name collides with the standard library on purpose; alias one
// of them when both are needed.
package log
