package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/pkg/errors"
)

type bucketConfigRepository struct {
	BaseRepository
}

func NewBucketConfigRepository(base BaseRepository) repository.BucketConfigRepository {
	return &bucketConfigRepository{base}
}

const bucketConfigColumns = `
	id, tenant_id, bucket_id, auto_send_enabled, template_id, send_hour,
	send_days, last_auto_send_at, total_runs, total_sent, total_failed,
	created_at, updated_at
`

func (r *bucketConfigRepository) Create(ctx context.Context, cfg *model.BucketConfig) error {
	query := `
		INSERT INTO reminder_bucket_configs (
			id, tenant_id, bucket_id, auto_send_enabled, template_id,
			send_hour, send_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	cfg.ID = uuid.New()
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = time.Now()

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.TenantID,
		cfg.BucketID,
		cfg.AutoSendEnabled,
		cfg.TemplateID,
		cfg.SendHour,
		cfg.SendDays,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	r.track("bucket_configs.create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create bucket config: %w", err)
	}
	return nil
}

func (r *bucketConfigRepository) Get(ctx context.Context, id uuid.UUID) (*model.BucketConfig, error) {
	query := `SELECT ` + bucketConfigColumns + ` FROM reminder_bucket_configs WHERE id = $1`

	var cfg model.BucketConfig
	start := time.Now()
	err := r.db.GetContext(ctx, &cfg, query, id)
	r.track("bucket_configs.get", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("bucket config", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket config: %w", err)
	}
	return &cfg, nil
}

func (r *bucketConfigRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*model.BucketConfig, error) {
	query := `
		SELECT ` + bucketConfigColumns + `
		FROM reminder_bucket_configs
		WHERE tenant_id = $1
		ORDER BY bucket_id
	`

	var configs []*model.BucketConfig
	start := time.Now()
	err := r.db.SelectContext(ctx, &configs, query, tenantID)
	r.track("bucket_configs.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket configs: %w", err)
	}
	return configs, nil
}

func (r *bucketConfigRepository) Update(ctx context.Context, cfg *model.BucketConfig) error {
	// The watermark is deliberately not part of this update; only Claim may
	// touch it.
	query := `
		UPDATE reminder_bucket_configs
		SET auto_send_enabled = $1, template_id = $2, send_hour = $3,
		    send_days = $4, updated_at = NOW()
		WHERE id = $5
	`
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		cfg.AutoSendEnabled,
		cfg.TemplateID,
		cfg.SendHour,
		cfg.SendDays,
		cfg.ID,
	)
	r.track("bucket_configs.update", start, err)
	if err != nil {
		return fmt.Errorf("failed to update bucket config: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFound("bucket config", nil)
	}
	return nil
}

func (r *bucketConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminder_bucket_configs WHERE id = $1`, id)
	r.track("bucket_configs.delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete bucket config: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFound("bucket config", nil)
	}
	return nil
}

func (r *bucketConfigRepository) ListAutoSendEnabled(ctx context.Context) ([]*model.BucketConfig, error) {
	query := `
		SELECT ` + bucketConfigColumns + `
		FROM reminder_bucket_configs
		WHERE auto_send_enabled = TRUE
		ORDER BY tenant_id, bucket_id
	`

	var configs []*model.BucketConfig
	start := time.Now()
	err := r.db.SelectContext(ctx, &configs, query)
	r.track("bucket_configs.list_auto_send", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-send configs: %w", err)
	}
	return configs, nil
}

// Claim is the single synchronization point for the scheduling window: a
// conditional update that advances the watermark in the same statement that
// checks it. Zero rows affected means another trigger won the window.
func (r *bucketConfigRepository) Claim(ctx context.Context, id uuid.UUID, now, windowStart time.Time) error {
	query := `
		UPDATE reminder_bucket_configs
		SET last_auto_send_at = $1, total_runs = total_runs + 1, updated_at = NOW()
		WHERE id = $2
		AND auto_send_enabled = TRUE
		AND (last_auto_send_at IS NULL OR last_auto_send_at < $3)
	`
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, now, id, windowStart)
	r.track("bucket_configs.claim", start, err)
	if err != nil {
		return errors.NewPersistence("claim", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		// Ambiguous outcome: fail closed, do not treat the claim as held.
		return errors.NewPersistence("claim", err)
	}
	if rows == 0 {
		return errors.NewClaimConflict(id.String())
	}
	return nil
}

func (r *bucketConfigRepository) RecordRunCounts(ctx context.Context, id uuid.UUID, sent, failed int) error {
	query := `
		UPDATE reminder_bucket_configs
		SET total_sent = total_sent + $1, total_failed = total_failed + $2,
		    updated_at = NOW()
		WHERE id = $3
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, sent, failed, id)
	r.track("bucket_configs.record_run_counts", start, err)
	if err != nil {
		return fmt.Errorf("failed to record run counts: %w", err)
	}
	return nil
}
