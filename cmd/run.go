package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/config"
	"github.com/margincraft/resale-cli/internal/job"
)

var (
	runLimit int
	runForce bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all pipeline stages in order",
	Long:  "Runs discover, source, score, and list back to back. Each stage commits its own writes; a stage failure stops the run but keeps everything earlier stages persisted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		cats, err := config.LoadCategories(cfg.Harvest.CategoriesPath)
		if err != nil {
			return err
		}
		engine, err := initEngine()
		if err != nil {
			return err
		}

		zap.L().Info("pipeline run starting", zap.Int("categories", len(cats)))

		stats, err := job.NewDiscoverJob(st, initHarvester(runLimit), cats, runForce).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "discover")
		}
		printStats(cmd, "discover", stats)

		stats, err = job.NewSourcingJob(st, initMatcher()).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "source")
		}
		printStats(cmd, "source", stats)

		stats, err = job.NewScoringJob(st, engine, cfg.Batch.MaxConcurrentPairs).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		printStats(cmd, "score", stats)

		stats, err = job.NewListingJob(st, initGenerator()).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "list")
		}
		printStats(cmd, "list", stats)

		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 50, "max products to request per category")
	runCmd.Flags().BoolVar(&runForce, "force", false, "reset the status of already-worked candidates")
	rootCmd.AddCommand(runCmd)
}
