// Package services defines the shared error taxonomy for the export
// pipeline. Every component wraps failures with one of the sentinel markers
// so the orchestrator and CLI can classify them without string matching.
package services
