package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pageturn/internal/books"
	"pageturn/internal/export"
	"pageturn/internal/storage"
)

// newExportCommand runs one export in-process with console progress, without
// touching the job queue.
func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <book-id>",
		Short: "Export one book to video immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			jobID := uuid.NewString()
			bookID := args[0]

			source := books.NewClient(cfg.BookService)
			var store storage.Store
			if client := storage.NewClient(cfg.Storage); client != nil {
				store = client
			}
			uploadPrefix := ""
			if cfg.Storage.UploadFrames {
				uploadPrefix = "frames/" + jobID
			}
			factory := export.NewCapturerFactory(cfg.Renderer, store, uploadPrefix, logger)
			exporter := export.New(export.OptionsFromConfig(cfg, jobID, bookID), source, store, factory, logger)

			out := cmd.OutOrStdout()
			started := time.Now()
			var lastPhase export.Phase
			result := exporter.Export(runCtx, func(p export.Progress) {
				if p.Phase != lastPhase {
					lastPhase = p.Phase
					fmt.Fprintf(out, "%s\n", p.Phase)
				}
				if p.Phase == export.PhaseRendering && p.TotalFrames > 0 {
					fmt.Fprintf(out, "\r  frame %d/%d (%.1f%%)", p.CurrentFrame, p.TotalFrames, p.Percent)
					if p.CurrentFrame == p.TotalFrames {
						fmt.Fprintln(out)
					}
				}
			})
			if result.Err != nil {
				return result.Err
			}

			fmt.Fprintf(out, "Exported in %s\n", time.Since(started).Round(time.Second))
			fmt.Fprintf(out, "Video: %s (%.1fs, %d bytes)\n", result.VideoURL, result.VideoDuration, result.VideoSize)
			return nil
		},
	}
}
