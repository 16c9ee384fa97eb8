package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pageturn/internal/config"
	"pageturn/internal/fileutil"
	"pageturn/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if health.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				} else {
					rows := [][]string{
						{"pending", strconv.Itoa(health.Pending)},
						{"exporting", strconv.Itoa(health.Exporting)},
						{"completed", strconv.Itoa(health.Completed)},
						{"failed", strconv.Itoa(health.Failed)},
						{"total", strconv.Itoa(health.Total)},
					}
					out := renderTable([]string{"Status", "Count"}, rows, 2)
					fmt.Fprintln(cmd.OutOrStdout(), out)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", store.Path())
				if size, err := fileutil.DirSize(cfg.Paths.StagingDir); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Staging: %d bytes in %s\n", size, cfg.Paths.StagingDir)
				}
				return nil
			})
		},
	}
}
