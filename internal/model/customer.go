package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsolidationPreference string

const (
	ConsolidationNever             ConsolidationPreference = "NEVER"
	ConsolidationIfMultipleOverdue ConsolidationPreference = "IF_MULTIPLE_OVERDUE"
	ConsolidationAlways            ConsolidationPreference = "ALWAYS"
)

func (p ConsolidationPreference) IsValid() bool {
	switch p {
	case ConsolidationNever, ConsolidationIfMultipleOverdue, ConsolidationAlways:
		return true
	}
	return false
}

// Customer is read-only input to the reminder engine.
type Customer struct {
	Base
	TenantID                uuid.UUID               `db:"tenant_id" json:"tenant_id"`
	Name                    string                  `db:"name" json:"name"`
	Email                   string                  `db:"email" json:"email"`
	ConsolidationPreference ConsolidationPreference `db:"consolidation_preference" json:"consolidation_preference"`
	MaxInvoicesPerReminder  int                     `db:"max_invoices_per_reminder" json:"max_invoices_per_reminder"`
	MaxConsolidatedAmount   float64                 `db:"max_consolidated_amount" json:"max_consolidated_amount"`
	MinContactIntervalDays  int                     `db:"min_contact_interval_days" json:"min_contact_interval_days"`
	LastContactedAt         *time.Time              `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
}
