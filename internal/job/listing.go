package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/listing"
	"github.com/margincraft/resale-cli/internal/store"
)

// ListingJob drafts listing templates for selected candidates that
// don't have one yet.
type ListingJob struct {
	store store.Store
	gen   listing.Generator
	log   *zap.Logger
}

func NewListingJob(s store.Store, g listing.Generator) *ListingJob {
	return &ListingJob{
		store: s,
		gen:   g,
		log:   zap.L().With(zap.String("job", "listing")),
	}
}

func (j *ListingJob) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	candidates, err := j.store.ListSelectedWithoutListing(ctx)
	if err != nil {
		return stats, err
	}
	j.log.Info("starting listing generation", zap.Int("candidates", len(candidates)))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		opt, err := j.store.BestOptionFor(ctx, c.ID)
		if err != nil {
			j.log.Error("best option lookup failed",
				zap.String("asin", c.ASIN),
				zap.Error(err),
			)
			stats.Errors++
			continue
		}
		if opt == nil {
			// Selected without any sourcing option; nothing to draft from.
			stats.Skipped++
			continue
		}

		tpl := j.gen.Generate(c, *opt)
		if err := j.store.InsertListing(ctx, tpl); err != nil {
			j.log.Error("insert listing failed",
				zap.String("asin", c.ASIN),
				zap.Error(err),
			)
			stats.Errors++
			continue
		}

		stats.Processed++
		stats.Created++
	}

	j.log.Info("listing generation finished", stats.Fields()...)
	return stats, nil
}
