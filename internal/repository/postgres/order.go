package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
)

const orderColumns = `
	id, seller_id, buyer_id, customer_name, customer_email, customer_phone,
	address, status, total, created_at, updated_at, deleted_at
`

func (r *orderRepository) CreateOrders(ctx context.Context, orders []*model.Order, events []*model.OutboxEvent) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, order := range orders {
			if err := insertOrder(ctx, tx, order); err != nil {
				return err
			}
		}
		for _, event := range events {
			if err := insertOutboxEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order *model.Order) error {
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	query := `
		INSERT INTO orders (
			id, seller_id, buyer_id, customer_name, customer_email,
			customer_phone, address, status, total, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		order.ID,
		order.SellerID,
		order.BuyerID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.Address,
		order.Status,
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		if err := insertItem(ctx, tx, order.ID, item); err != nil {
			return err
		}
	}
	return nil
}

func insertItem(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID, item *model.OrderItem) error {
	item.ID = uuid.New()
	item.OrderID = orderID
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	query := `
		INSERT INTO order_items (
			id, order_id, product_id, product_title, unit_price, quantity,
			is_service, appointment_at, appointment_status,
			appointment_alternates, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := tx.ExecContext(ctx, query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.ProductTitle,
		item.UnitPrice,
		item.Quantity,
		item.IsService,
		item.AppointmentAt,
		nullableStatus(item.AppointmentStatus),
		item.AppointmentAlternates,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on (product_id, appointment_at) is the
		// authoritative double-booking defense. Losing the race surfaces
		// here, not in the validator pre-check.
		if isSlotConflict(err) {
			return repository.ErrSlotConflict
		}
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func nullableStatus(s model.AppointmentStatus) interface{} {
	if s == "" {
		return nil
	}
	return string(s)
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND deleted_at IS NULL`

	var order model.Order
	err := r.db.GetContext(ctx, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *orderRepository) itemsFor(ctx context.Context, orderID uuid.UUID) ([]*model.OrderItem, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`
	var items []*model.OrderItem
	err := r.db.SelectContext(ctx, &items, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return items, nil
}

func (r *orderRepository) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.SellerID != uuid.Nil {
			query += fmt.Sprintf(" AND seller_id = $%d", argCount)
			args = append(args, filters.SellerID)
			argCount++
		}
		if filters.BuyerID != uuid.Nil {
			query += fmt.Sprintf(" AND buyer_id = $%d", argCount)
			args = append(args, filters.BuyerID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
	}
	query += " ORDER BY created_at DESC"

	var orders []*model.Order
	err := r.db.SelectContext(ctx, &orders, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.itemsFor(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) SaveTransition(ctx context.Context, order *model.Order, items []*model.OrderItem, event *model.OutboxEvent) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, item := range items {
			item.UpdatedAt = time.Now()
			query := `
				UPDATE order_items
				SET appointment_at = $1, appointment_status = $2,
					appointment_alternates = $3, updated_at = $4
				WHERE id = $5
			`
			result, err := tx.ExecContext(ctx, query,
				item.AppointmentAt,
				nullableStatus(item.AppointmentStatus),
				item.AppointmentAlternates,
				item.UpdatedAt,
				item.ID,
			)
			if err != nil {
				if isSlotConflict(err) {
					return repository.ErrSlotConflict
				}
				return fmt.Errorf("failed to update order item: %w", err)
			}
			rows, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rows == 0 {
				return repository.ErrNotFound
			}
		}

		order.UpdatedAt = time.Now()
		query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
		result, err := tx.ExecContext(ctx, query, order.Status, order.UpdatedAt, order.ID)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		if event != nil {
			if err := insertOutboxEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}
