package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/margincraft/resale-cli/internal/job"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Draft listing templates for selected candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := job.NewListingJob(st, initGenerator()).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "list")
		}
		printStats(cmd, "list", stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
