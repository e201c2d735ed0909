package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/marketplace-api/internal/model"
)

// CachedProductRepository caches product reads for availability requests,
// which hit the same listing repeatedly while a buyer browses the calendar.
// Writes invalidate the entry. Booking rows are deliberately never cached;
// checkout validation must read the latest state.
type CachedProductRepository struct {
	ProductRepository
	cache *gocache.Cache
}

func NewCachedProductRepository(repo ProductRepository, ttl time.Duration) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: repo,
		cache:             gocache.New(ttl, 2*ttl),
	}
}

func (r *CachedProductRepository) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if cached, ok := r.cache.Get(id.String()); ok {
		return cached.(*model.Product), nil
	}

	product, err := r.ProductRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(id.String(), product)
	return product, nil
}

func (r *CachedProductRepository) Update(ctx context.Context, product *model.Product) error {
	if err := r.ProductRepository.Update(ctx, product); err != nil {
		return err
	}
	r.cache.Delete(product.ID.String())
	return nil
}

func (r *CachedProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.ProductRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.Delete(id.String())
	return nil
}
