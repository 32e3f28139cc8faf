// Package lifecycle aggregates per-pair scoring decisions into a single
// candidate status transition.
package lifecycle

import "github.com/margincraft/resale-cli/internal/model"

// Reduce folds the decisions produced for one candidate in a scoring batch
// into its next lifecycle status. The reduction depends only on which
// decisions are present, not on their order: any launch decision selects
// the candidate, any review decision keeps it scored, and a batch of only
// drops rejects it.
func Reduce(decisions []model.Decision) model.Status {
	hasReview := false
	for _, d := range decisions {
		switch d {
		case model.DecisionLaunch:
			return model.StatusSelected
		case model.DecisionReview:
			hasReview = true
		}
	}
	if hasReview {
		return model.StatusScored
	}
	return model.StatusRejected
}

// CanTransition reports whether a scoring batch may move a candidate out
// of its current status. Launched candidates are terminal for the
// automated pipeline; everything else is overwritten by the next batch.
func CanTransition(current model.Status) bool {
	return current != model.StatusLaunched
}
