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

type tenantRepository struct {
	BaseRepository
}

func NewTenantRepository(base BaseRepository) repository.TenantRepository {
	return &tenantRepository{base}
}

func (r *tenantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	query := `
		SELECT id, name, timezone, business_hour_start, business_hour_end,
		       working_days, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var tenant model.Tenant
	start := time.Now()
	err := r.db.GetContext(ctx, &tenant, query, id)
	r.track("tenants.get", start, err)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("tenant", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}
