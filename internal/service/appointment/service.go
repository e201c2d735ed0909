package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	"github.com/jwalitptl/marketplace-api/internal/service/availability"
	"github.com/jwalitptl/marketplace-api/internal/service/notification"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

// Service drives an appointment through its negotiation lifecycle. Sellers
// confirm, reject or propose alternates and complete the service; buyers
// accept an alternate and pay. Order status is always the derived projection
// of the items, never patched ad hoc.
type Service struct {
	orders   repository.OrderRepository
	notifier notification.Service
}

func NewService(orders repository.OrderRepository, notifier notification.Service) *Service {
	return &Service{
		orders:   orders,
		notifier: notifier,
	}
}

// ConfirmAppointment moves every requested appointment on the order to
// confirmed. Seller action.
func (s *Service) ConfirmAppointment(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	order, err := s.getOwned(ctx, orderID, sellerID, uuid.Nil)
	if err != nil {
		return nil, err
	}

	eligible := itemsIn(order, model.AppointmentStatusRequested)
	if len(eligible) == 0 {
		return nil, apperrors.StateTransition("order has no requested appointments to confirm")
	}

	for _, item := range eligible {
		item.AppointmentStatus = model.AppointmentStatusConfirmed
	}

	if err := s.saveTransition(ctx, order, eligible, model.EventAppointmentConfirmed); err != nil {
		return nil, err
	}
	s.notifier.AppointmentConfirmed(ctx, order)
	return order, nil
}

// RejectOrPropose moves requested appointments to proposed, carrying the
// seller's alternate slots, or to rejected when no alternates are offered.
func (s *Service) RejectOrPropose(ctx context.Context, orderID, sellerID uuid.UUID, proposals []string) (*model.Order, error) {
	alternates, err := parseProposals(proposals)
	if err != nil {
		return nil, err
	}

	order, err := s.getOwned(ctx, orderID, sellerID, uuid.Nil)
	if err != nil {
		return nil, err
	}

	eligible := itemsIn(order, model.AppointmentStatusRequested)
	if len(eligible) == 0 {
		return nil, apperrors.StateTransition("order has no requested appointments to reject or reschedule")
	}

	event := model.EventAppointmentRejected
	for _, item := range eligible {
		if len(alternates) == 0 {
			item.AppointmentStatus = model.AppointmentStatusRejected
			item.AppointmentAlternates = nil
		} else {
			item.AppointmentStatus = model.AppointmentStatusProposed
			item.AppointmentAlternates = alternates
			event = model.EventAppointmentProposed
		}
	}

	if err := s.saveTransition(ctx, order, eligible, event); err != nil {
		return nil, err
	}
	s.notifier.AppointmentProposed(ctx, order, alternates)
	return order, nil
}

// AcceptAlternate commits the buyer's chosen alternate: the appointment moves
// to scheduled at the new time and the proposal list is cleared.
func (s *Service) AcceptAlternate(ctx context.Context, orderID, buyerID uuid.UUID, date string) (*model.Order, error) {
	parsed, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("invalid appointment time %q", date), err)
	}
	chosen := availability.NormalizeSlot(parsed)

	order, err := s.getOwned(ctx, orderID, uuid.Nil, buyerID)
	if err != nil {
		return nil, err
	}

	eligible := itemsIn(order, model.AppointmentStatusProposed)
	if len(eligible) == 0 {
		return nil, apperrors.StateTransition("order has no proposed alternates to accept")
	}

	for _, item := range eligible {
		if !containsSlot(item.AppointmentAlternates, chosen) {
			return nil, apperrors.Validation("accepted time is not among the proposed alternates", nil)
		}
		at := chosen
		item.AppointmentAt = &at
		item.AppointmentStatus = model.AppointmentStatusScheduled
		item.AppointmentAlternates = nil
	}

	if err := s.saveTransition(ctx, order, eligible, model.EventAppointmentAccepted); err != nil {
		return nil, err
	}
	s.notifier.AppointmentScheduled(ctx, order)
	return order, nil
}

// CompleteService marks the order's confirmed and scheduled appointments as
// completed. Services have no shipment leg, so a fully completed order goes
// straight to completed.
func (s *Service) CompleteService(ctx context.Context, orderID, sellerID uuid.UUID) (*model.Order, error) {
	order, err := s.getOwned(ctx, orderID, sellerID, uuid.Nil)
	if err != nil {
		return nil, err
	}

	eligible := itemsIn(order, model.AppointmentStatusConfirmed, model.AppointmentStatusScheduled)
	if len(eligible) == 0 {
		return nil, apperrors.StateTransition("order has no confirmed or scheduled appointments to complete")
	}

	for _, item := range eligible {
		item.AppointmentStatus = model.AppointmentStatusCompleted
	}

	if err := s.saveTransition(ctx, order, eligible, model.EventServiceCompleted); err != nil {
		return nil, err
	}
	s.notifier.ServiceCompleted(ctx, order)
	return order, nil
}

// Pay settles a completed service order. Payment is an order-level fact, not
// part of the per-item projection.
func (s *Service) Pay(ctx context.Context, orderID, buyerID uuid.UUID) (*model.Order, error) {
	order, err := s.getOwned(ctx, orderID, uuid.Nil, buyerID)
	if err != nil {
		return nil, err
	}

	if order.Status != model.OrderStatusCompleted {
		return nil, apperrors.StateTransition("order must be completed before payment")
	}

	order.Status = model.OrderStatusPaid
	event := newEvent(model.EventOrderPaid, order)
	if err := s.orders.SaveTransition(ctx, order, nil, event); err != nil {
		return nil, fmt.Errorf("failed to save order payment: %w", err)
	}
	s.notifier.OrderPaid(ctx, order)
	return order, nil
}

func (s *Service) getOwned(ctx context.Context, orderID, sellerID, buyerID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	// Ownership failures read as not-found so order existence is never
	// confirmed to the wrong actor.
	if sellerID != uuid.Nil && order.SellerID != sellerID {
		return nil, apperrors.NotFound("order", nil)
	}
	if buyerID != uuid.Nil && (order.BuyerID == nil || *order.BuyerID != buyerID) {
		return nil, apperrors.NotFound("order", nil)
	}

	if len(order.ServiceItems()) == 0 {
		return nil, apperrors.Validation("order has no service items", nil)
	}
	return order, nil
}

// GetOrder returns an order for dashboard views, with the same ownership
// rules as the lifecycle transitions but no service-item requirement.
func (s *Service) GetOrder(ctx context.Context, orderID, sellerID, buyerID uuid.UUID) (*model.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("order", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if sellerID != uuid.Nil && order.SellerID != sellerID {
		return nil, apperrors.NotFound("order", nil)
	}
	if buyerID != uuid.Nil && (order.BuyerID == nil || *order.BuyerID != buyerID) {
		return nil, apperrors.NotFound("order", nil)
	}
	return order, nil
}

// ListOrders returns the orders matching the given dashboard filters.
func (s *Service) ListOrders(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	orders, err := s.orders.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) saveTransition(ctx context.Context, order *model.Order, changed []*model.OrderItem, eventType string) error {
	order.Status = model.DeriveOrderStatus(order.Items)

	event := newEvent(eventType, order)
	err := s.orders.SaveTransition(ctx, order, changed, event)
	if errors.Is(err, repository.ErrSlotConflict) {
		// Accepting an alternate can collide with a booking made since the
		// proposal went out.
		return apperrors.SlotTaken(changed[0].ProductTitle)
	}
	if err != nil {
		return fmt.Errorf("failed to save appointment transition: %w", err)
	}
	return nil
}

func itemsIn(order *model.Order, statuses ...model.AppointmentStatus) []*model.OrderItem {
	var out []*model.OrderItem
	for _, item := range order.ServiceItems() {
		for _, status := range statuses {
			if item.AppointmentStatus == status {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func parseProposals(proposals []string) (model.TimeList, error) {
	out := make(model.TimeList, 0, len(proposals))
	for _, p := range proposals {
		t, err := time.Parse(time.RFC3339, p)
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("invalid proposed time %q", p), err)
		}
		out = append(out, availability.NormalizeSlot(t))
	}
	return out, nil
}

func containsSlot(list model.TimeList, slot time.Time) bool {
	for _, t := range list {
		if t.Equal(slot) {
			return true
		}
	}
	return false
}

func newEvent(eventType string, order *model.Order) *model.OutboxEvent {
	payload, _ := json.Marshal(map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}
}
