// Package queue persists export jobs in SQLite.
//
// The database is the single source of truth for job state: the workflow
// runner claims pending jobs from it, streams progress into the job row, and
// the CLI reads the same rows for status output. WAL mode plus a short busy
// retry keeps concurrent CLI reads from tripping over the runner's writes.
package queue
