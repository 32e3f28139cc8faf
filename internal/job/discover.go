package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/config"
	"github.com/margincraft/resale-cli/internal/model"
	"github.com/margincraft/resale-cli/internal/store"
)

// Harvester supplies raw product observations for one category.
type Harvester interface {
	Harvest(ctx context.Context, cat config.Category) ([]model.Observation, error)
}

// DiscoverJob pulls top products for each active category and folds
// them into the candidate store.
type DiscoverJob struct {
	store     store.Store
	harvester Harvester
	cats      []config.Category
	force     bool
	log       *zap.Logger
}

// NewDiscoverJob creates a discover job. force resets the status of
// already-worked candidates on re-ingestion.
func NewDiscoverJob(s store.Store, h Harvester, cats []config.Category, force bool) *DiscoverJob {
	return &DiscoverJob{
		store:     s,
		harvester: h,
		cats:      cats,
		force:     force,
		log:       zap.L().With(zap.String("job", "discover")),
	}
}

// Run harvests every category. A failing category is logged and
// skipped; duplicate ASINs within the run are processed once.
func (j *DiscoverJob) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	seen := make(map[string]struct{})

	j.log.Info("starting discovery", zap.Int("categories", len(j.cats)))

	for _, cat := range j.cats {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		obs, err := j.harvester.Harvest(ctx, cat)
		if err != nil {
			j.log.Error("category harvest failed",
				zap.String("category", cat.Name),
				zap.Error(err),
			)
			stats.Errors++
			continue
		}

		for _, o := range obs {
			if o.ASIN == "" {
				stats.Errors++
				continue
			}
			if _, dup := seen[o.ASIN]; dup {
				stats.Skipped++
				continue
			}
			seen[o.ASIN] = struct{}{}

			_, created, err := j.store.UpsertCandidate(ctx, model.Candidate{
				ASIN:                 o.ASIN,
				Title:                o.Title,
				Category:             o.Category,
				SourceMarketplace:    cat.Marketplace,
				AvgPrice:             o.AvgPrice,
				BSR:                  o.BSR,
				EstimatedSalesPerDay: o.EstimatedSalesPerDay,
				ReviewsCount:         o.ReviewsCount,
				Rating:               o.Rating,
				RawData:              o.Raw,
			}, j.force)
			if err != nil {
				j.log.Error("upsert failed",
					zap.String("asin", o.ASIN),
					zap.Error(err),
				)
				stats.Errors++
				continue
			}

			stats.Processed++
			if created {
				stats.Created++
			} else {
				stats.Updated++
			}
		}
	}

	j.log.Info("discovery finished", stats.Fields()...)
	return stats, nil
}
