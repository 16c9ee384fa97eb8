// Package workflow runs the single-lane export loop: claim the oldest
// pending job, run it through the export pipeline with progress persisted to
// the job row, then poll for the next one.
//
// A file lock on the staging directory guarantees one runner per workspace,
// so two daemons never fight over the same browser session or temp files.
package workflow
