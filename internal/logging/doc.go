// Package logging configures slog for ffibridge.
//
// Without --debug, warnings and errors go to stderr as text. With --debug,
// every record is also written as JSON to ~/.ffibridge/logs/ffibridge.log,
// rotated by size, and can be read back with `ffibridge logs`.
package logging
