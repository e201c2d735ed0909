package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
)

const productColumns = `
	id, seller_id, title, description, price, type, stock, status,
	open_days, open_time, close_time, duration_minutes, daily_capacity,
	created_at, updated_at, deleted_at
`

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (
			id, seller_id, title, description, price, type, stock, status,
			open_days, open_time, close_time, duration_minutes, daily_capacity,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.SellerID,
		product.Title,
		product.Description,
		product.Price,
		product.Type,
		product.Stock,
		product.Status,
		pq.Array(product.OpenDays),
		product.OpenTime,
		product.CloseTime,
		product.DurationMinutes,
		product.DailyCapacity,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	var product model.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (r *productRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) AND deleted_at IS NULL`

	var products []*model.Product
	err := r.db.SelectContext(ctx, &products, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	query := `
		UPDATE products
		SET title = $1, description = $2, price = $3, stock = $4, status = $5,
			open_days = $6, open_time = $7, close_time = $8,
			duration_minutes = $9, daily_capacity = $10, updated_at = $11
		WHERE id = $12 AND deleted_at IS NULL
	`
	product.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		product.Title,
		product.Description,
		product.Price,
		product.Stock,
		product.Status,
		pq.Array(product.OpenDays),
		product.OpenTime,
		product.CloseTime,
		product.DurationMinutes,
		product.DailyCapacity,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, sellerID uuid.UUID) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE deleted_at IS NULL`
	args := []interface{}{}

	if sellerID != uuid.Nil {
		query += ` AND seller_id = $1`
		args = append(args, sellerID)
	}
	query += ` ORDER BY created_at DESC`

	var products []*model.Product
	err := r.db.SelectContext(ctx, &products, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
