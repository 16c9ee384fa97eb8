// Package logs reads the pageturn log file for CLI diagnostics.
//
// It supports "last N lines" reads with bounded memory and incremental
// follow-mode reads keyed by byte offset, which powers `pageturn logs
// --follow`. Callers pass a context so polling stops when the CLI exits.
package logs
