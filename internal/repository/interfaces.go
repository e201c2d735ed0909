package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
)

// Sentinel errors surfaced by implementations. Services translate these into
// the user-facing error taxonomy.
var (
	// ErrNotFound is returned when a row does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrSlotConflict is returned when the partial unique index on
	// (product_id, appointment_at) rejects a booking write. It is the
	// storage layer losing-the-race signal.
	ErrSlotConflict = errors.New("appointment slot already booked")
)

type (
	ProductRepository interface {
		Create(ctx context.Context, product *model.Product) error
		Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
		GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Product, error)
		Update(ctx context.Context, product *model.Product) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, sellerID uuid.UUID) ([]*model.Product, error)
	}

	// BookingRepository reads and mutates the service line items that act as
	// bookings. Reads used for validation must hit the live table, never a
	// cache.
	BookingRepository interface {
		// FindActive returns bookings for a product whose slot falls in
		// [from, to) and whose appointment status still holds the slot.
		FindActive(ctx context.Context, productID uuid.UUID, from, to time.Time) ([]*model.OrderItem, error)
	}

	OrderRepository interface {
		// CreateOrders persists a checkout batch: every order, its items and
		// the given outbox events in one transaction. A unique-index
		// rejection of a booking slot is reported as ErrSlotConflict and
		// nothing is written.
		CreateOrders(ctx context.Context, orders []*model.Order, events []*model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
		List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error)
		// SaveTransition writes updated appointment items, the derived order
		// status and the transition's outbox event in one transaction.
		SaveTransition(ctx context.Context, order *model.Order, items []*model.OrderItem, event *model.OutboxEvent) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
