package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/margincraft/resale-cli/internal/match"
	"github.com/margincraft/resale-cli/internal/store"
)

// SourcingJob attaches sourcing options to candidates that have none.
type SourcingJob struct {
	store   store.Store
	matcher *match.Matcher
	log     *zap.Logger
}

func NewSourcingJob(s store.Store, m *match.Matcher) *SourcingJob {
	return &SourcingJob{
		store:   s,
		matcher: m,
		log:     zap.L().With(zap.String("job", "sourcing")),
	}
}

// Run matches every optionless candidate against the supplier catalogs.
// Candidates the matcher yields nothing for (no title, no keywords) are
// skipped and picked up again on the next run.
func (j *SourcingJob) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	candidates, err := j.store.ListCandidatesWithoutOptions(ctx)
	if err != nil {
		return stats, err
	}
	j.log.Info("starting sourcing", zap.Int("candidates", len(candidates)))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		options := j.matcher.FindOptions(c)
		if len(options) == 0 {
			stats.Skipped++
			continue
		}

		n, err := j.store.InsertOptions(ctx, options)
		if err != nil {
			j.log.Error("insert options failed",
				zap.String("asin", c.ASIN),
				zap.Error(err),
			)
			stats.Errors++
			continue
		}

		stats.Processed++
		stats.Created += n
	}

	j.log.Info("sourcing finished", stats.Fields()...)
	return stats, nil
}
