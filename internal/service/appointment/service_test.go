package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
)

type fakeOrderRepo struct {
	orders        map[uuid.UUID]*model.Order
	saveErr       error
	savedEvents   []*model.OutboxEvent
	lastChanged   []*model.OrderItem
	saveCallCount int
}

func newFakeOrderRepo(orders ...*model.Order) *fakeOrderRepo {
	m := make(map[uuid.UUID]*model.Order, len(orders))
	for _, o := range orders {
		m[o.ID] = o
	}
	return &fakeOrderRepo{orders: m}
}

func (f *fakeOrderRepo) CreateOrders(ctx context.Context, orders []*model.Order, events []*model.OutboxEvent) error {
	return nil
}

func (f *fakeOrderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range f.orders {
		if filters != nil {
			if filters.SellerID != uuid.Nil && o.SellerID != filters.SellerID {
				continue
			}
			if filters.BuyerID != uuid.Nil && (o.BuyerID == nil || *o.BuyerID != filters.BuyerID) {
				continue
			}
			if filters.Status != "" && o.Status != filters.Status {
				continue
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderRepo) SaveTransition(ctx context.Context, order *model.Order, items []*model.OrderItem, event *model.OutboxEvent) error {
	f.saveCallCount++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.lastChanged = items
	if event != nil {
		f.savedEvents = append(f.savedEvents, event)
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(ctx context.Context, order *model.Order)       {}
func (noopNotifier) AppointmentConfirmed(ctx context.Context, order *model.Order) {}
func (noopNotifier) AppointmentProposed(ctx context.Context, order *model.Order, alternates model.TimeList) {
}
func (noopNotifier) AppointmentScheduled(ctx context.Context, order *model.Order) {}
func (noopNotifier) ServiceCompleted(ctx context.Context, order *model.Order)     {}
func (noopNotifier) OrderPaid(ctx context.Context, order *model.Order)            {}

var slot = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func serviceOrder(status model.AppointmentStatus) (*model.Order, uuid.UUID, uuid.UUID) {
	sellerID := uuid.New()
	buyerID := uuid.New()
	at := slot
	order := &model.Order{
		SellerID: sellerID,
		BuyerID:  &buyerID,
		Status:   model.OrderStatusPending,
		Items: []*model.OrderItem{
			{
				ID:                uuid.New(),
				ProductID:         uuid.New(),
				ProductTitle:      "Haircut",
				Quantity:          1,
				IsService:         true,
				AppointmentAt:     &at,
				AppointmentStatus: status,
			},
		},
	}
	order.ID = uuid.New()
	return order, sellerID, buyerID
}

func TestConfirmAppointment(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusRequested)
	repo := newFakeOrderRepo(order)
	svc := NewService(repo, noopNotifier{})

	got, err := svc.ConfirmAppointment(context.Background(), order.ID, sellerID)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirmed, got.Items[0].AppointmentStatus)
	assert.Equal(t, model.OrderStatusScheduled, got.Status)
	require.Len(t, repo.savedEvents, 1)
	assert.Equal(t, model.EventAppointmentConfirmed, repo.savedEvents[0].EventType)
}

func TestConfirmRequiresRequestedState(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusConfirmed)
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.ConfirmAppointment(context.Background(), order.ID, sellerID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateTransition))
}

func TestConfirmOwnershipReadsAsNotFound(t *testing.T) {
	order, _, _ := serviceOrder(model.AppointmentStatusRequested)
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.ConfirmAppointment(context.Background(), order.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestRejectWithoutProposals(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusRequested)
	repo := newFakeOrderRepo(order)
	svc := NewService(repo, noopNotifier{})

	got, err := svc.RejectOrPropose(context.Background(), order.ID, sellerID, nil)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusRejected, got.Items[0].AppointmentStatus)
	assert.Empty(t, got.Items[0].AppointmentAlternates)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	require.Len(t, repo.savedEvents, 1)
	assert.Equal(t, model.EventAppointmentRejected, repo.savedEvents[0].EventType)
}

func TestProposeAlternates(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusRequested)
	repo := newFakeOrderRepo(order)
	svc := NewService(repo, noopNotifier{})

	alt1 := slot.Add(24 * time.Hour)
	alt2 := slot.Add(48 * time.Hour)
	got, err := svc.RejectOrPropose(context.Background(), order.ID, sellerID, []string{
		alt1.Format(time.RFC3339),
		alt2.Format(time.RFC3339),
	})
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusProposed, got.Items[0].AppointmentStatus)
	require.Len(t, got.Items[0].AppointmentAlternates, 2)
	assert.True(t, got.Items[0].AppointmentAlternates[0].Equal(alt1))
	require.Len(t, repo.savedEvents, 1)
	assert.Equal(t, model.EventAppointmentProposed, repo.savedEvents[0].EventType)
}

func TestProposeRejectsInvalidTimestamp(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusRequested)
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.RejectOrPropose(context.Background(), order.ID, sellerID, []string{"tomorrow-ish"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestAcceptAlternate(t *testing.T) {
	order, _, buyerID := serviceOrder(model.AppointmentStatusProposed)
	alt := slot.Add(24 * time.Hour)
	order.Items[0].AppointmentAlternates = model.TimeList{alt}
	repo := newFakeOrderRepo(order)
	svc := NewService(repo, noopNotifier{})

	got, err := svc.AcceptAlternate(context.Background(), order.ID, buyerID, alt.Format(time.RFC3339))
	require.NoError(t, err)

	item := got.Items[0]
	assert.Equal(t, model.AppointmentStatusScheduled, item.AppointmentStatus)
	require.NotNil(t, item.AppointmentAt)
	assert.True(t, item.AppointmentAt.Equal(alt))
	assert.Empty(t, item.AppointmentAlternates)
	assert.Equal(t, model.OrderStatusScheduled, got.Status)
}

func TestAcceptRejectsUnproposedTime(t *testing.T) {
	order, _, buyerID := serviceOrder(model.AppointmentStatusProposed)
	order.Items[0].AppointmentAlternates = model.TimeList{slot.Add(24 * time.Hour)}
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.AcceptAlternate(context.Background(), order.ID, buyerID, slot.Add(72*time.Hour).Format(time.RFC3339))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestAcceptSurfacesSlotConflict(t *testing.T) {
	order, _, buyerID := serviceOrder(model.AppointmentStatusProposed)
	alt := slot.Add(24 * time.Hour)
	order.Items[0].AppointmentAlternates = model.TimeList{alt}
	repo := newFakeOrderRepo(order)
	repo.saveErr = repository.ErrSlotConflict
	svc := NewService(repo, noopNotifier{})

	_, err := svc.AcceptAlternate(context.Background(), order.ID, buyerID, alt.Format(time.RFC3339))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSlotTaken))
}

func TestCompleteService(t *testing.T) {
	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusScheduled,
	} {
		t.Run(string(status), func(t *testing.T) {
			order, sellerID, _ := serviceOrder(status)
			repo := newFakeOrderRepo(order)
			svc := NewService(repo, noopNotifier{})

			got, err := svc.CompleteService(context.Background(), order.ID, sellerID)
			require.NoError(t, err)

			assert.Equal(t, model.AppointmentStatusCompleted, got.Items[0].AppointmentStatus)
			assert.Equal(t, model.OrderStatusCompleted, got.Status)
		})
	}
}

func TestCompleteRequiresActiveAppointment(t *testing.T) {
	order, sellerID, _ := serviceOrder(model.AppointmentStatusRequested)
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.CompleteService(context.Background(), order.ID, sellerID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateTransition))
}

func TestPay(t *testing.T) {
	order, _, buyerID := serviceOrder(model.AppointmentStatusCompleted)
	order.Status = model.OrderStatusCompleted
	repo := newFakeOrderRepo(order)
	svc := NewService(repo, noopNotifier{})

	got, err := svc.Pay(context.Background(), order.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
	require.Len(t, repo.savedEvents, 1)
	assert.Equal(t, model.EventOrderPaid, repo.savedEvents[0].EventType)
}

func TestPayRequiresCompletedOrder(t *testing.T) {
	order, _, buyerID := serviceOrder(model.AppointmentStatusConfirmed)
	order.Status = model.OrderStatusScheduled
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.Pay(context.Background(), order.ID, buyerID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStateTransition))
}

func TestPayOwnership(t *testing.T) {
	order, _, _ := serviceOrder(model.AppointmentStatusCompleted)
	order.Status = model.OrderStatusCompleted
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	_, err := svc.Pay(context.Background(), order.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestDeriveOrderStatus(t *testing.T) {
	svcItem := func(status model.AppointmentStatus) *model.OrderItem {
		return &model.OrderItem{IsService: true, AppointmentStatus: status}
	}
	goodsItem := &model.OrderItem{IsService: false}

	tests := []struct {
		name  string
		items []*model.OrderItem
		want  model.OrderStatus
	}{
		{"no items", nil, model.OrderStatusPending},
		{"goods only", []*model.OrderItem{goodsItem}, model.OrderStatusPending},
		{"requested", []*model.OrderItem{svcItem(model.AppointmentStatusRequested)}, model.OrderStatusPending},
		{"rejected", []*model.OrderItem{svcItem(model.AppointmentStatusRejected)}, model.OrderStatusPending},
		{"confirmed", []*model.OrderItem{svcItem(model.AppointmentStatusConfirmed)}, model.OrderStatusScheduled},
		{"scheduled", []*model.OrderItem{svcItem(model.AppointmentStatusScheduled)}, model.OrderStatusScheduled},
		{"all completed", []*model.OrderItem{svcItem(model.AppointmentStatusCompleted)}, model.OrderStatusCompleted},
		{
			"partially completed",
			[]*model.OrderItem{
				svcItem(model.AppointmentStatusCompleted),
				svcItem(model.AppointmentStatusRequested),
			},
			model.OrderStatusScheduled,
		},
		{
			"mixed goods and completed service",
			[]*model.OrderItem{goodsItem, svcItem(model.AppointmentStatusCompleted)},
			model.OrderStatusCompleted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.DeriveOrderStatus(tt.items))
		})
	}
}

func TestGetOrderAllowsGoodsOnly(t *testing.T) {
	sellerID := uuid.New()
	order := &model.Order{
		SellerID: sellerID,
		Status:   model.OrderStatusPending,
		Items:    []*model.OrderItem{{IsService: false}},
	}
	order.ID = uuid.New()
	svc := NewService(newFakeOrderRepo(order), noopNotifier{})

	got, err := svc.GetOrder(context.Background(), order.ID, sellerID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Lifecycle transitions on the same order are rejected.
	_, err = svc.ConfirmAppointment(context.Background(), order.ID, sellerID)
	require.Error(t, err)
}
