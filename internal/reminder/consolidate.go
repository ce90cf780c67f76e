package reminder

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/model"
)

// Group builds the consolidation candidates for one customer's eligible
// invoices, honoring the customer's preference and caps. Splitting under caps
// walks invoices oldest first, so no invoice is ever dropped: every eligible
// invoice id lands in exactly one candidate.
func Group(customer *model.Customer, invoices []*model.Invoice, now time.Time) []*model.ConsolidationCandidate {
	if len(invoices) == 0 {
		return nil
	}

	sorted := make([]*model.Invoice, len(invoices))
	copy(sorted, invoices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	switch customer.ConsolidationPreference {
	case model.ConsolidationNever:
		out := make([]*model.ConsolidationCandidate, 0, len(sorted))
		for _, inv := range sorted {
			out = append(out, buildCandidate(customer.ID, []*model.Invoice{inv}, now, model.ReasonPreferenceNever))
		}
		return out

	case model.ConsolidationIfMultipleOverdue:
		if len(sorted) == 1 {
			return []*model.ConsolidationCandidate{
				buildCandidate(customer.ID, sorted, now, model.ReasonSingleInvoice),
			}
		}
		return merge(customer, sorted, now)

	default: // ALWAYS
		return merge(customer, sorted, now)
	}
}

func merge(customer *model.Customer, sorted []*model.Invoice, now time.Time) []*model.ConsolidationCandidate {
	chunks := splitByCaps(sorted, customer.MaxInvoicesPerReminder, customer.MaxConsolidatedAmount)

	reason := model.ReasonConsolidatedMulti
	if len(chunks) > 1 {
		reason = model.ReasonCappedSplit
	} else if len(chunks) == 1 && len(chunks[0]) == 1 {
		reason = model.ReasonSingleInvoice
	}

	out := make([]*model.ConsolidationCandidate, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, buildCandidate(customer.ID, chunk, now, reason))
	}
	return out
}

// splitByCaps partitions due-date-ordered invoices into chunks that respect
// both caps. A cap of zero means unlimited. A single invoice over the amount
// cap still gets its own chunk rather than being dropped.
func splitByCaps(sorted []*model.Invoice, maxCount int, maxAmount float64) [][]*model.Invoice {
	var chunks [][]*model.Invoice
	var current []*model.Invoice
	var currentAmount float64

	for _, inv := range sorted {
		countExceeded := maxCount > 0 && len(current) >= maxCount
		amountExceeded := maxAmount > 0 && len(current) > 0 && currentAmount+inv.OutstandingBalance > maxAmount

		if countExceeded || amountExceeded {
			chunks = append(chunks, current)
			current = nil
			currentAmount = 0
		}
		current = append(current, inv)
		currentAmount += inv.OutstandingBalance
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

func buildCandidate(customerID uuid.UUID, invoices []*model.Invoice, now time.Time, reason model.ConsolidationReason) *model.ConsolidationCandidate {
	c := &model.ConsolidationCandidate{
		CustomerID:   customerID,
		InvoiceIDs:   make([]uuid.UUID, 0, len(invoices)),
		InvoiceCount: len(invoices),
		Reason:       reason,
	}
	for _, inv := range invoices {
		c.InvoiceIDs = append(c.InvoiceIDs, inv.ID)
		c.TotalAmount += inv.OutstandingBalance
		if age := DaysOverdue(inv.DueDate, now); age > c.OldestAgeDays {
			c.OldestAgeDays = age
		}
	}
	return c
}
