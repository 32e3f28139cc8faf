package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/margincraft/resale-cli/internal/config"
	"github.com/margincraft/resale-cli/internal/job"
)

var (
	discoverLimit int
	discoverForce bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Harvest top products per category into the candidate store",
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

		stats, err := job.NewDiscoverJob(st, initHarvester(discoverLimit), cats, discoverForce).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "discover")
		}
		printStats(cmd, "discover", stats)
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 50, "max products to request per category")
	discoverCmd.Flags().BoolVar(&discoverForce, "force", false, "reset the status of already-worked candidates")
	rootCmd.AddCommand(discoverCmd)
}
