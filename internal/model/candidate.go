package model

import (
	"github.com/google/uuid"
)

// EscalationLevel is the staged severity of a reminder. Ordering matters: a
// customer's escalation never decreases within an unresolved collection cycle.
type EscalationLevel int

const (
	EscalationPolite EscalationLevel = iota
	EscalationFirm
	EscalationUrgent
	EscalationFinal
)

func (e EscalationLevel) String() string {
	switch e {
	case EscalationFirm:
		return "FIRM"
	case EscalationUrgent:
		return "URGENT"
	case EscalationFinal:
		return "FINAL"
	default:
		return "POLITE"
	}
}

// ParseEscalationLevel maps the stored label back to a level. Unknown labels
// map to POLITE, the floor of the ratchet.
func ParseEscalationLevel(s string) EscalationLevel {
	switch s {
	case "FIRM":
		return EscalationFirm
	case "URGENT":
		return EscalationUrgent
	case "FINAL":
		return EscalationFinal
	default:
		return EscalationPolite
	}
}

// ConsolidationReason explains why invoices were or were not merged.
type ConsolidationReason string

const (
	ReasonSingleInvoice     ConsolidationReason = "single_invoice"
	ReasonConsolidatedMulti ConsolidationReason = "consolidated_multi"
	ReasonCappedSplit       ConsolidationReason = "capped_split"
	ReasonPreferenceNever   ConsolidationReason = "preference_never"
)

// ConsolidationCandidate is built per run and discarded after it. It is the
// input to the campaign record created at dispatch time.
type ConsolidationCandidate struct {
	CustomerID    uuid.UUID
	InvoiceIDs    []uuid.UUID
	TotalAmount   float64
	InvoiceCount  int
	OldestAgeDays int
	PriorityScore int
	Escalation    EscalationLevel
	Reason        ConsolidationReason
}
