package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/model"
)

// InvoiceRepository reads invoices. The reminder engine never writes them.
type InvoiceRepository interface {
	ListCollectible(ctx context.Context, tenantID uuid.UUID) ([]*model.Invoice, error)
	List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error)
}

// CustomerRepository reads customers and maintains the last-contacted stamp.
type CustomerRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	UpdateLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error
}

type TenantRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
}

// BucketConfigRepository owns the scheduling state. Claim is the only write
// path for the watermark and must be a single conditional update.
type BucketConfigRepository interface {
	Create(ctx context.Context, cfg *model.BucketConfig) error
	Get(ctx context.Context, id uuid.UUID) (*model.BucketConfig, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*model.BucketConfig, error)
	Update(ctx context.Context, cfg *model.BucketConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListAutoSendEnabled(ctx context.Context) ([]*model.BucketConfig, error)

	// Claim atomically advances the watermark to now if it is unset or older
	// than windowStart. Returns a claim-conflict error when another trigger
	// already holds the window.
	Claim(ctx context.Context, id uuid.UUID, now, windowStart time.Time) error

	RecordRunCounts(ctx context.Context, id uuid.UUID, sent, failed int) error
}

// ContactHistory summarizes prior reminders for a customer's unresolved
// collection cycle.
type ContactHistory struct {
	PriorContacts     int
	HighestEscalation model.EscalationLevel
	LastContactAt     *time.Time
}

type CampaignRepository interface {
	Create(ctx context.Context, c *model.ReminderCampaign) error
	Get(ctx context.Context, id uuid.UUID) (*model.ReminderCampaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus, completedAt *time.Time) error

	// History aggregates campaigns created since the start of the unresolved
	// cycle (the oldest unpaid invoice's due date).
	History(ctx context.Context, tenantID, customerID uuid.UUID, since time.Time) (*ContactHistory, error)
}

type DeliveryRepository interface {
	Create(ctx context.Context, rec *model.DeliveryRecord) error
	Get(ctx context.Context, id uuid.UUID) (*model.DeliveryRecord, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*model.DeliveryRecord, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*model.DeliveryRecord, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, at time.Time) error
	DeleteTerminalBefore(ctx context.Context, before time.Time) (int64, error)
}

type RunRepository interface {
	Create(ctx context.Context, summary *model.RunSummary) error
	List(ctx context.Context, limit int) ([]*model.RunSummary, error)
}
