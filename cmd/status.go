package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/margincraft/resale-cli/internal/job"
	"github.com/margincraft/resale-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline counts per lifecycle status and decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "load counts")
		}

		cmd.Println("Candidates:")
		for _, s := range []model.Status{
			model.StatusNew, model.StatusScored, model.StatusSelected,
			model.StatusRejected, model.StatusLaunched,
		} {
			cmd.Printf("  %-10s %d\n", s, counts.Candidates[s])
		}

		cmd.Println("Decisions:")
		for _, d := range []model.Decision{
			model.DecisionLaunch, model.DecisionReview, model.DecisionDrop,
		} {
			cmd.Printf("  %-10s %d\n", d, counts.Decisions[d])
		}

		cmd.Printf("Sourcing options: %d\n", counts.Options)
		cmd.Printf("Listing templates: %d\n", counts.Listings)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStats(cmd *cobra.Command, stage string, stats *job.Stats) {
	cmd.Printf("%s: processed=%d created=%d updated=%d skipped=%d errors=%d\n",
		stage, stats.Processed, stats.Created, stats.Updated, stats.Skipped, stats.Errors)
}
