package model

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary is the observable outcome of one auto-send cycle.
type RunSummary struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	StartedAt         time.Time  `db:"started_at" json:"started_at"`
	FinishedAt        time.Time  `db:"finished_at" json:"finished_at"`
	Actor             string     `db:"actor" json:"actor"`
	BucketsProcessed  int        `db:"buckets_processed" json:"buckets_processed"`
	CandidatesBuilt   int        `db:"candidates_built" json:"candidates_built"`
	Sent              int        `db:"sent" json:"sent"`
	Failed            int        `db:"failed" json:"failed"`
	SkippedIneligible int        `db:"skipped_ineligible" json:"skipped_ineligible"`
	Errors            StringList `db:"errors" json:"errors,omitempty"`
}

// AddError records a run-level error without aborting other buckets.
func (s *RunSummary) AddError(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err.Error())
	}
}
