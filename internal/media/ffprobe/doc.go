// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The export pipeline uses it twice: to recover a chapter's audio duration
// when the book service omits one, and to verify the stitched video before
// upload.
package ffprobe
