package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
)

type runRepository struct {
	BaseRepository
}

func NewRunRepository(base BaseRepository) repository.RunRepository {
	return &runRepository{base}
}

func (r *runRepository) Create(ctx context.Context, summary *model.RunSummary) error {
	query := `
		INSERT INTO auto_send_runs (
			id, started_at, finished_at, actor, buckets_processed,
			candidates_built, sent, failed, skipped_ineligible, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now()
	}

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		summary.ID,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Actor,
		summary.BucketsProcessed,
		summary.CandidatesBuilt,
		summary.Sent,
		summary.Failed,
		summary.SkippedIneligible,
		summary.Errors,
	)
	r.track("runs.create", start, err)
	if err != nil {
		return fmt.Errorf("failed to record run summary: %w", err)
	}
	return nil
}

func (r *runRepository) List(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := `
		SELECT id, started_at, finished_at, actor, buckets_processed,
		       candidates_built, sent, failed, skipped_ineligible, errors
		FROM auto_send_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	var runs []*model.RunSummary
	start := time.Now()
	err := r.db.SelectContext(ctx, &runs, query, limit)
	r.track("runs.list", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
