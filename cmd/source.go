package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/margincraft/resale-cli/internal/job"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Match supplier catalogs against optionless candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := job.NewSourcingJob(st, initMatcher()).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "source")
		}
		printStats(cmd, "source", stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
}
