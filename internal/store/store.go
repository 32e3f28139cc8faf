// Package store persists candidates, sourcing options, scores and
// listing templates. Two backends exist: Postgres (pgxpool) for real
// deployments and SQLite (modernc) for local runs.
package store

import (
	"context"

	"github.com/margincraft/resale-cli/internal/model"
)

// StatusCounts summarizes the pipeline state for the status command.
type StatusCounts struct {
	Candidates map[model.Status]int
	Decisions  map[model.Decision]int
	Options    int
	Listings   int
}

// Store defines the persistence interface for the resale pipeline.
type Store interface {
	// Candidates
	//
	// UpsertCandidate inserts or refreshes a candidate keyed by ASIN in
	// one atomic statement. Descriptive and metric fields are always
	// overwritten; the lifecycle status of an already worked candidate
	// (scored, selected, launched) is preserved unless force is set.
	// The returned flag is true when a new row was created.
	UpsertCandidate(ctx context.Context, c model.Candidate, force bool) (*model.Candidate, bool, error)
	ListCandidatesWithoutOptions(ctx context.Context) ([]model.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, candidateID string, status model.Status) error

	// Sourcing options (immutable once created, cascade-deleted with
	// their candidate)
	InsertOptions(ctx context.Context, options []model.SourcingOption) (int, error)

	// ListPairsWithoutScores returns every (candidate, option) pair of
	// each candidate that has at least one unscored option. Whole
	// candidates, not just the unscored pairs: scoring always rescores
	// a candidate's full option set so ReplaceScores stays atomic.
	ListPairsWithoutScores(ctx context.Context) ([]model.Pair, error)

	// Scores. ReplaceScores drops any prior scores for the candidate's
	// pairs and writes the new ones in one transaction, so a rescore
	// never leaves a candidate half-updated.
	ReplaceScores(ctx context.Context, candidateID string, scores []model.Score) error

	// Listings
	ListSelectedWithoutListing(ctx context.Context) ([]model.Candidate, error)
	BestOptionFor(ctx context.Context, candidateID string) (*model.SourcingOption, error)
	InsertListing(ctx context.Context, tpl model.ListingTemplate) error

	// Operational
	Counts(ctx context.Context) (*StatusCounts, error)
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
