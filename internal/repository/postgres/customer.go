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

type customerRepository struct {
	BaseRepository
}

func NewCustomerRepository(base BaseRepository) repository.CustomerRepository {
	return &customerRepository{base}
}

func (r *customerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := `
		SELECT id, tenant_id, name, email, consolidation_preference,
		       max_invoices_per_reminder, max_consolidated_amount,
		       min_contact_interval_days, last_contacted_at, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var customer model.Customer
	start := time.Now()
	err := r.db.GetContext(ctx, &customer, query, id)
	r.track("customers.get", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("customer", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

func (r *customerRepository) UpdateLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE customers
		SET last_contacted_at = $1, updated_at = NOW()
		WHERE id = $2
	`
	start := time.Now()
	_, err := r.db.ExecContext(ctx, query, at, id)
	r.track("customers.update_last_contacted", start, err)
	if err != nil {
		return fmt.Errorf("failed to update last contacted: %w", err)
	}
	return nil
}
