// Package export runs one book-to-video export end to end: manifest build,
// frame capture, audio preparation, stitching, and artifact upload.
//
// An export walks six phases in order, reports progress through an optional
// callback, and guarantees workspace cleanup whether it finishes or fails.
// There are no retries and no resume: a failed export leaves nothing behind
// except its job record.
package export
