// Command pageturn exports audio-synchronized book videos.
//
// It runs one-shot exports with `pageturn export`, drains the job queue with
// `pageturn run`, and manages jobs and configuration with the remaining
// subcommands.
package main
