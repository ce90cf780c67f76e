package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
)

type invoiceRepository struct {
	BaseRepository
}

func NewInvoiceRepository(base BaseRepository) repository.InvoiceRepository {
	return &invoiceRepository{base}
}

func (r *invoiceRepository) ListCollectible(ctx context.Context, tenantID uuid.UUID) ([]*model.Invoice, error) {
	query := `
		SELECT id, tenant_id, customer_id, number, currency, outstanding_balance,
		       due_date, status, created_at, updated_at
		FROM invoices
		WHERE tenant_id = $1
		AND status IN ('sent', 'overdue')
		AND outstanding_balance > 0
		ORDER BY due_date ASC
	`

	var invoices []*model.Invoice
	start := time.Now()
	err := r.db.SelectContext(ctx, &invoices, query, tenantID)
	r.track("invoices.list_collectible", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list collectible invoices: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error) {
	query := `
		SELECT id, tenant_id, customer_id, number, currency, outstanding_balance,
		       due_date, status, created_at, updated_at
		FROM invoices
		WHERE tenant_id = $1
	`
	args := []interface{}{filters.TenantID}
	idx := 2

	if filters.CustomerID != uuid.Nil {
		query += fmt.Sprintf(" AND customer_id = $%d", idx)
		args = append(args, filters.CustomerID)
		idx++
	}
	if !filters.DueBefore.IsZero() {
		query += fmt.Sprintf(" AND due_date < $%d", idx)
		args = append(args, filters.DueBefore)
		idx++
	}
	if !filters.DueAfter.IsZero() {
		query += fmt.Sprintf(" AND due_date >= $%d", idx)
		args = append(args, filters.DueAfter)
		idx++
	}
	if len(filters.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", idx)
		statuses := make([]string, 0, len(filters.Statuses))
		for _, s := range filters.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, pq.Array(statuses))
	}
	query += " ORDER BY due_date ASC"

	var invoices []*model.Invoice
	start := time.Now()
	err := r.db.SelectContext(ctx, &invoices, query, args...)
	r.track("invoices.list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}
