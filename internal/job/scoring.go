package job

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/margincraft/resale-cli/internal/lifecycle"
	"github.com/margincraft/resale-cli/internal/model"
	"github.com/margincraft/resale-cli/internal/scoring"
	"github.com/margincraft/resale-cli/internal/store"
)

// ScoringJob evaluates every unscored (candidate, option) pair and
// applies the resulting lifecycle transition per candidate.
type ScoringJob struct {
	store         store.Store
	engine        *scoring.Engine
	maxConcurrent int
	log           *zap.Logger
}

func NewScoringJob(s store.Store, e *scoring.Engine, maxConcurrent int) *ScoringJob {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &ScoringJob{
		store:         s,
		engine:        e,
		maxConcurrent: maxConcurrent,
		log:           zap.L().With(zap.String("job", "scoring")),
	}
}

// Run fans out over candidates with a bounded worker pool. Each worker
// scores all of one candidate's pairs, persists the scores, and only
// then applies the reduced status, so a crash can never leave a status
// ahead of its scores.
func (j *ScoringJob) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	pairs, err := j.store.ListPairsWithoutScores(ctx)
	if err != nil {
		return stats, err
	}

	// Group by candidate; each group is scored and committed as a unit.
	byCandidate := make(map[string][]model.Pair)
	var order []string
	for _, p := range pairs {
		id := p.Candidate.ID
		if _, ok := byCandidate[id]; !ok {
			order = append(order, id)
		}
		byCandidate[id] = append(byCandidate[id], p)
	}

	j.log.Info("starting scoring",
		zap.Int("pairs", len(pairs)),
		zap.Int("candidates", len(order)),
		zap.Int("max_concurrent", j.maxConcurrent),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.maxConcurrent)

	for _, id := range order {
		group := byCandidate[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := j.scoreCandidate(gctx, group)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				j.log.Error("candidate scoring failed",
					zap.String("asin", group[0].Candidate.ASIN),
					zap.Error(err),
				)
				stats.Errors++
				return nil
			}
			stats.Processed++
			stats.Created += len(group)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	j.log.Info("scoring finished", stats.Fields()...)
	return stats, nil
}

func (j *ScoringJob) scoreCandidate(ctx context.Context, pairs []model.Pair) error {
	candidate := pairs[0].Candidate

	scores := make([]model.Score, 0, len(pairs))
	decisions := make([]model.Decision, 0, len(pairs))
	for _, p := range pairs {
		sc := j.engine.Score(ctx, p.Candidate, p.Option)
		sc.CandidateID = candidate.ID
		sc.OptionID = p.Option.ID
		scores = append(scores, sc)
		decisions = append(decisions, sc.Decision)
	}

	// Scores must be durable before the status moves.
	if err := j.store.ReplaceScores(ctx, candidate.ID, scores); err != nil {
		return err
	}

	if !lifecycle.CanTransition(candidate.Status) {
		return nil
	}
	next := lifecycle.Reduce(decisions)
	if next == candidate.Status {
		return nil
	}
	return j.store.UpdateCandidateStatus(ctx, candidate.ID, next)
}
