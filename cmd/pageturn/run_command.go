package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pageturn/internal/config"
	"pageturn/internal/notifications"
	"pageturn/internal/queue"
	"pageturn/internal/workflow"
)

// newRunCommand starts the poll loop that drains the job queue until
// interrupted.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process queued exports until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				runner, err := workflow.New(cfg, store, notifications.NewService(cfg), workflow.NewExportFunc(cfg, logger), logger)
				if err != nil {
					return err
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				if err := runner.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pageturn runner started; press Ctrl+C to stop")

				<-runCtx.Done()
				fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
				runner.Stop()
				return nil
			})
		},
	}
}
