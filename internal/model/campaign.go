package model

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignStatusDispatching CampaignStatus = "dispatching"
	CampaignStatusCompleted   CampaignStatus = "completed"
	CampaignStatusFailed      CampaignStatus = "failed"
)

// ReminderCampaign records one consolidated reminder sent to one customer.
// Prior campaigns for the customer drive the escalation ratchet and the
// prior-contact count used by the priority policy.
type ReminderCampaign struct {
	Base
	TenantID      uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	CustomerID    uuid.UUID      `db:"customer_id" json:"customer_id"`
	BucketID      BucketID       `db:"bucket_id" json:"bucket_id"`
	InvoiceIDs    UUIDList       `db:"invoice_ids" json:"invoice_ids"`
	TotalAmount   float64        `db:"total_amount" json:"total_amount"`
	InvoiceCount  int            `db:"invoice_count" json:"invoice_count"`
	PriorityScore int            `db:"priority_score" json:"priority_score"`
	Escalation    string         `db:"escalation" json:"escalation"`
	Reason        string         `db:"reason" json:"reason"`
	Status        CampaignStatus `db:"status" json:"status"`
	CreatedBy     string         `db:"created_by" json:"created_by"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}
