package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/margincraft/resale-cli/internal/job"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unscored candidate/option pairs and apply status transitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine, err := initEngine()
		if err != nil {
			return err
		}

		stats, err := job.NewScoringJob(st, engine, cfg.Batch.MaxConcurrentPairs).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		printStats(cmd, "score", stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
