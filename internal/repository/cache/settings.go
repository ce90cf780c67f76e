package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
)

// CustomerRepository is a read-through cache over the customer store. A
// dispatch cycle touches the same customers repeatedly; their consolidation
// settings change rarely.
type CustomerRepository struct {
	inner repository.CustomerRepository
	cache *gocache.Cache
}

func NewCustomerRepository(inner repository.CustomerRepository, ttl time.Duration) *CustomerRepository {
	return &CustomerRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *CustomerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	if cached, ok := r.cache.Get(id.String()); ok {
		return cached.(*model.Customer), nil
	}

	customer, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(id.String(), customer)
	return customer, nil
}

// UpdateLastContacted writes through and invalidates, so the next gate check
// sees the fresh contact stamp.
func (r *CustomerRepository) UpdateLastContacted(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.inner.UpdateLastContacted(ctx, id, at); err != nil {
		return err
	}
	r.cache.Delete(id.String())
	return nil
}

// TenantRepository caches tenant scheduling settings.
type TenantRepository struct {
	inner repository.TenantRepository
	cache *gocache.Cache
}

func NewTenantRepository(inner repository.TenantRepository, ttl time.Duration) *TenantRepository {
	return &TenantRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	if cached, ok := r.cache.Get(id.String()); ok {
		return cached.(*model.Tenant), nil
	}

	tenant, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(id.String(), tenant)
	return tenant, nil
}
