package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	"github.com/jwalitptl/marketplace-api/internal/service/booking"
	"github.com/jwalitptl/marketplace-api/internal/service/notification"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
	"github.com/jwalitptl/marketplace-api/pkg/metrics"
)

// Service orchestrates checkout: it groups the cart by seller, runs the
// booking validator over service items and persists the whole batch in one
// transaction. Goods fulfilment (stock, shipping) is delegated to the goods
// pipeline and not handled here.
type Service struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	validator *booking.Validator
	notifier  notification.Service
	metrics   *metrics.Metrics
}

func NewService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	validator *booking.Validator,
	notifier notification.Service,
	m *metrics.Metrics,
) *Service {
	return &Service{
		products:  products,
		orders:    orders,
		validator: validator,
		notifier:  notifier,
		metrics:   m,
	}
}

// Checkout validates and persists a cart. Any rejected item aborts the whole
// batch: either every order is created or none is.
func (s *Service) Checkout(ctx context.Context, buyerID uuid.UUID, req *model.CheckoutRequest) ([]*model.Order, error) {
	start := time.Now()
	defer func() {
		s.metrics.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	orders, err := s.checkout(ctx, buyerID, req)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok {
			s.metrics.BookingConflicts.WithLabelValues(string(appErr.Code)).Inc()
		}
		return nil, err
	}

	bookings := 0
	for _, order := range orders {
		bookings += len(order.ServiceItems())
		s.notifier.BookingCreated(ctx, order)
	}
	for i := 0; i < bookings; i++ {
		s.metrics.BookingsCreated.Inc()
	}
	return orders, nil
}

func (s *Service) checkout(ctx context.Context, buyerID uuid.UUID, req *model.CheckoutRequest) ([]*model.Order, error) {
	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var serviceRequests []booking.Request
	for _, item := range req.Items {
		product := products[item.ProductID]
		if !product.IsService() {
			continue
		}
		serviceRequests = append(serviceRequests, booking.Request{
			Product:  product,
			Quantity: item.Quantity,
			SlotText: item.Meta,
		})
	}

	validated, err := s.validator.ValidateBatch(ctx, serviceRequests)
	if err != nil {
		return nil, err
	}
	slots := make(map[uuid.UUID][]time.Time)
	for _, b := range validated {
		slots[b.Product.ID] = append(slots[b.Product.ID], b.Slot)
	}

	orders := s.buildOrders(buyerID, req, products, slots)

	events := make([]*model.OutboxEvent, 0, len(orders))
	for _, order := range orders {
		events = append(events, newBookingEvent(order))
	}

	err = s.orders.CreateOrders(ctx, orders, events)
	if errors.Is(err, repository.ErrSlotConflict) {
		// A concurrent checkout won a slot between our re-check and the
		// write. Re-run validation against the fresh state so the rejection
		// names the exact product and rule.
		if _, verr := s.validator.ValidateBatch(ctx, serviceRequests); verr != nil {
			return nil, verr
		}
		return nil, apperrors.SlotTaken(firstServiceTitle(orders))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist checkout: %w", err)
	}
	return orders, nil
}

func (s *Service) resolveProducts(ctx context.Context, items []model.CheckoutItem) (map[uuid.UUID]*model.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	found, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	products := make(map[uuid.UUID]*model.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, item := range items {
		if _, ok := products[item.ProductID]; !ok {
			return nil, apperrors.NotFound("product", nil)
		}
	}
	return products, nil
}

// buildOrders groups the cart by seller; each seller gets one order. Service
// items are annotated with their normalized slot and start life as requested
// appointments.
func (s *Service) buildOrders(buyerID uuid.UUID, req *model.CheckoutRequest, products map[uuid.UUID]*model.Product, slots map[uuid.UUID][]time.Time) []*model.Order {
	bySeller := make(map[uuid.UUID]*model.Order)
	var ordered []*model.Order

	for _, item := range req.Items {
		product := products[item.ProductID]

		order := bySeller[product.SellerID]
		if order == nil {
			order = &model.Order{
				SellerID:      product.SellerID,
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
				CustomerPhone: req.CustomerPhone,
				Address:       req.Address,
				Status:        model.OrderStatusPending,
			}
			if buyerID != uuid.Nil {
				id := buyerID
				order.BuyerID = &id
			}
			bySeller[product.SellerID] = order
			ordered = append(ordered, order)
		}

		orderItem := &model.OrderItem{
			ProductID:    product.ID,
			ProductTitle: product.Title,
			UnitPrice:    product.Price,
			Quantity:     item.Quantity,
			IsService:    product.IsService(),
		}
		if product.IsService() {
			slot := slots[product.ID][0]
			slots[product.ID] = slots[product.ID][1:]
			orderItem.AppointmentAt = &slot
			orderItem.AppointmentStatus = model.AppointmentStatusRequested
		}
		order.Items = append(order.Items, orderItem)
		order.Total += product.Price * float64(item.Quantity)
	}
	return ordered
}

func newBookingEvent(order *model.Order) *model.OutboxEvent {
	type bookingPayload struct {
		ProductID     uuid.UUID  `json:"product_id"`
		AppointmentAt *time.Time `json:"appointment_at,omitempty"`
	}
	items := make([]bookingPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, bookingPayload{
			ProductID:     item.ProductID,
			AppointmentAt: item.AppointmentAt,
		})
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"seller_id":      order.SellerID,
		"customer_email": order.CustomerEmail,
		"items":          items,
	})
	return &model.OutboxEvent{
		EventType: model.EventBookingCreated,
		Payload:   payload,
	}
}

func firstServiceTitle(orders []*model.Order) string {
	for _, order := range orders {
		for _, item := range order.ServiceItems() {
			return item.ProductTitle
		}
	}
	return "service"
}
