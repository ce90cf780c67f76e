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

type deliveryRepository struct {
	BaseRepository
}

func NewDeliveryRepository(base BaseRepository) repository.DeliveryRepository {
	return &deliveryRepository{base}
}

const deliveryColumns = `
	id, campaign_id, tenant_id, recipient, status, provider_message_id,
	error_message, sent_at, delivered_at, created_at, updated_at
`

func (r *deliveryRepository) Create(ctx context.Context, rec *model.DeliveryRecord) error {
	query := `
		INSERT INTO delivery_records (
			id, campaign_id, tenant_id, recipient, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	rec.ID = uuid.New()
	rec.Status = model.DeliveryStatusQueued
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = time.Now()

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.CampaignID,
		rec.TenantID,
		rec.Recipient,
		rec.Status,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	r.track("deliveries.create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create delivery record: %w", err)
	}
	return nil
}

func (r *deliveryRepository) Get(ctx context.Context, id uuid.UUID) (*model.DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_records WHERE id = $1`

	var rec model.DeliveryRecord
	start := time.Now()
	err := r.db.GetContext(ctx, &rec, query, id)
	r.track("deliveries.get", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("delivery record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery record: %w", err)
	}
	return &rec, nil
}

func (r *deliveryRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*model.DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_records WHERE provider_message_id = $1`

	var rec model.DeliveryRecord
	start := time.Now()
	err := r.db.GetContext(ctx, &rec, query, providerMessageID)
	r.track("deliveries.get_by_provider_message_id", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("delivery record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery record: %w", err)
	}
	return &rec, nil
}

func (r *deliveryRepository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*model.DeliveryRecord, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_records WHERE campaign_id = $1 ORDER BY created_at ASC`

	var records []*model.DeliveryRecord
	start := time.Now()
	err := r.db.SelectContext(ctx, &records, query, campaignID)
	r.track("deliveries.list_by_campaign", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	return records, nil
}

func (r *deliveryRepository) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, at time.Time) error {
	query := `
		UPDATE delivery_records
		SET status = $1, provider_message_id = $2, sent_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		model.DeliveryStatusSent, providerMessageID, at, id, model.DeliveryStatusQueued)
	r.track("deliveries.mark_sent", start, err)
	if err != nil {
		return fmt.Errorf("failed to mark delivery sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFound("queued delivery record", nil)
	}
	return nil
}

func (r *deliveryRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE delivery_records
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, model.DeliveryStatusFailed, errorMessage, id)
	r.track("deliveries.mark_failed", start, err)
	if err != nil {
		return fmt.Errorf("failed to mark delivery failed: %w", err)
	}
	return nil
}

func (r *deliveryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, at time.Time) error {
	query := `
		UPDATE delivery_records
		SET status = $1,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN $2 ELSE delivered_at END,
		    updated_at = NOW()
		WHERE id = $3
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, status, at, id)
	r.track("deliveries.update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	return nil
}

func (r *deliveryRepository) DeleteTerminalBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM delivery_records
		WHERE status IN ('delivered', 'bounced', 'failed', 'opened', 'clicked')
		AND updated_at < $1
	`
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, before)
	r.track("deliveries.delete_terminal_before", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old delivery records: %w", err)
	}
	return result.RowsAffected()
}
