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

type campaignRepository struct {
	BaseRepository
}

func NewCampaignRepository(base BaseRepository) repository.CampaignRepository {
	return &campaignRepository{base}
}

func (r *campaignRepository) Create(ctx context.Context, c *model.ReminderCampaign) error {
	query := `
		INSERT INTO reminder_campaigns (
			id, tenant_id, customer_id, bucket_id, invoice_ids, total_amount,
			invoice_count, priority_score, escalation, reason, status,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	c.Status = model.CampaignStatusDispatching

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.TenantID,
		c.CustomerID,
		c.BucketID,
		c.InvoiceIDs,
		c.TotalAmount,
		c.InvoiceCount,
		c.PriorityScore,
		c.Escalation,
		c.Reason,
		c.Status,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	r.track("campaigns.create", start, err)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Get(ctx context.Context, id uuid.UUID) (*model.ReminderCampaign, error) {
	query := `
		SELECT id, tenant_id, customer_id, bucket_id, invoice_ids, total_amount,
		       invoice_count, priority_score, escalation, reason, status,
		       created_by, completed_at, created_at, updated_at
		FROM reminder_campaigns
		WHERE id = $1
	`

	var c model.ReminderCampaign
	start := time.Now()
	err := r.db.GetContext(ctx, &c, query, id)
	r.track("campaigns.get", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("campaign", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

func (r *campaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus, completedAt *time.Time) error {
	query := `
		UPDATE reminder_campaigns
		SET status = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, status, completedAt, id)
	r.track("campaigns.update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	return nil
}

func (r *campaignRepository) History(ctx context.Context, tenantID, customerID uuid.UUID, since time.Time) (*repository.ContactHistory, error) {
	query := `
		SELECT escalation, created_at
		FROM reminder_campaigns
		WHERE tenant_id = $1 AND customer_id = $2
		AND created_at >= $3
		AND status != 'failed'
		ORDER BY created_at ASC
	`

	rows := []struct {
		Escalation string    `db:"escalation"`
		CreatedAt  time.Time `db:"created_at"`
	}{}
	start := time.Now()
	err := r.db.SelectContext(ctx, &rows, query, tenantID, customerID, since)
	r.track("campaigns.history", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact history: %w", err)
	}

	history := &repository.ContactHistory{}
	for _, row := range rows {
		history.PriorContacts++
		if level := model.ParseEscalationLevel(row.Escalation); level > history.HighestEscalation {
			history.HighestEscalation = level
		}
		at := row.CreatedAt
		history.LastContactAt = &at
	}
	return history, nil
}
