package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

// Service manages marketplace listings. Service-typed products get their
// availability shape normalized on every write so the booking engine can
// trust the stored config.
type Service struct {
	repo repository.ProductRepository
}

func NewService(repo repository.ProductRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateProduct(ctx context.Context, sellerID uuid.UUID, req *model.CreateProductRequest) (*model.Product, error) {
	product := &model.Product{
		SellerID:        sellerID,
		Title:           req.Title,
		Description:     req.Description,
		Price:           req.Price,
		Type:            model.ProductType(req.Type),
		Stock:           req.Stock,
		Status:          "active",
		OpenDays:        req.OpenDays,
		OpenTime:        req.OpenTime,
		CloseTime:       req.CloseTime,
		DurationMinutes: req.DurationMinutes,
		DailyCapacity:   req.DailyCapacity,
	}

	if product.IsService() {
		if err := normalizeServiceFields(product); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("product", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, req *model.UpdateProductRequest) (*model.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if sellerID != uuid.Nil && product.SellerID != sellerID {
		return nil, apperrors.NotFound("product", nil)
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.OpenDays != nil {
		product.OpenDays = req.OpenDays
	}
	if req.OpenTime != nil {
		product.OpenTime = *req.OpenTime
	}
	if req.CloseTime != nil {
		product.CloseTime = *req.CloseTime
	}
	if req.DurationMinutes != nil {
		product.DurationMinutes = *req.DurationMinutes
	}
	if req.DailyCapacity != nil {
		product.DailyCapacity = req.DailyCapacity
	}

	if product.IsService() {
		if err := normalizeServiceFields(product); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if sellerID != uuid.Nil && product.SellerID != sellerID {
		return apperrors.NotFound("product", nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, sellerID uuid.UUID) ([]*model.Product, error) {
	products, err := s.repo.List(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// normalizeServiceFields applies the write-time invariants of a bookable
// service: weekday names deduplicated and canonically ordered, slot duration
// at least 15 minutes, capacity positive when set, open hours parsable.
func normalizeServiceFields(product *model.Product) error {
	days := model.NormalizeOpenDays(product.OpenDays)
	if len(days) == 0 {
		return apperrors.Validation("a service needs at least one open day", nil)
	}
	product.OpenDays = days

	if product.DurationMinutes < int(model.MinSlotDuration.Minutes()) {
		product.DurationMinutes = int(model.MinSlotDuration.Minutes())
	}
	if product.DailyCapacity != nil && *product.DailyCapacity < 1 {
		product.DailyCapacity = nil
	}

	cfg := product.ServiceConfig()
	if _, _, err := cfg.WindowFor(product.CreatedAt); err != nil {
		return apperrors.Validation("open and close times must use HH:MM format", err)
	}
	return nil
}
