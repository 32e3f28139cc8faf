// Package job implements the four batch stages of the pipeline:
// discover, source, score and list. Each job is a synchronous batch
// with independent per-item writes; one bad item never aborts the run.
package job

import "go.uber.org/zap"

// Stats summarizes one job run.
type Stats struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Errors    int
}

// Fields renders the stats as structured log fields.
func (s *Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", s.Processed),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("skipped", s.Skipped),
		zap.Int("errors", s.Errors),
	}
}
