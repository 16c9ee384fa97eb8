// Package logging builds the slog loggers used across pageturn. It provides
// a compact console handler for interactive use, a JSON handler for log
// files, and small attribute helpers so call sites stay terse.
package logging
