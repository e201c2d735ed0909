package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
)

const bookingColumns = `
	id, order_id, product_id, product_title, unit_price, quantity, is_service,
	appointment_at, appointment_status, appointment_alternates,
	created_at, updated_at
`

// FindActive returns the bookings that still hold a slot for the product in
// [from, to). Cancelled and rejected bookings have released their slot and
// are excluded.
func (r *bookingRepository) FindActive(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]*model.OrderItem, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM order_items
		WHERE product_id = $1
		AND is_service = true
		AND appointment_at >= $2
		AND appointment_at < $3
		AND appointment_status NOT IN ('cancelled', 'rejected')
		ORDER BY appointment_at ASC
	`
	var items []*model.OrderItem
	err := r.db.SelectContext(ctx, &items, query, productID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	return items, nil
}
