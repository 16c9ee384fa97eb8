// Package timing converts chapter text, word-level narration timestamps, and
// audio durations into the page and flip-transition timing manifest consumed
// by the frame capture and encoding phases. Everything here is pure and
// deterministic; independent chapters may be computed concurrently.
package timing
