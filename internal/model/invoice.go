package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "draft"
	InvoiceStatusSent       InvoiceStatus = "sent"
	InvoiceStatusOverdue    InvoiceStatus = "overdue"
	InvoiceStatusDisputed   InvoiceStatus = "disputed"
	InvoiceStatusPaid       InvoiceStatus = "paid"
	InvoiceStatusWrittenOff InvoiceStatus = "written_off"
)

// Invoice is read-only input for the reminder engine. Payments and overdue
// maintenance mutate it elsewhere.
type Invoice struct {
	Base
	TenantID           uuid.UUID     `db:"tenant_id" json:"tenant_id"`
	CustomerID         uuid.UUID     `db:"customer_id" json:"customer_id"`
	Number             string        `db:"number" json:"number"`
	Currency           string        `db:"currency" json:"currency"`
	OutstandingBalance float64       `db:"outstanding_balance" json:"outstanding_balance"`
	DueDate            time.Time     `db:"due_date" json:"due_date"`
	Status             InvoiceStatus `db:"status" json:"status"`
}

// Collectible reports whether the invoice can still be chased.
func (i *Invoice) Collectible() bool {
	switch i.Status {
	case InvoiceStatusSent, InvoiceStatusOverdue:
		return i.OutstandingBalance > 0
	}
	return false
}

type InvoiceFilters struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	DueBefore  time.Time
	DueAfter   time.Time
	Statuses   []InvoiceStatus
}
