package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	"github.com/jwalitptl/marketplace-api/internal/service/appointment"
	"github.com/jwalitptl/marketplace-api/pkg/auth"
)

type stubOrderRepo struct {
	orders map[uuid.UUID]*model.Order
}

func (s *stubOrderRepo) CreateOrders(ctx context.Context, orders []*model.Order, events []*model.OutboxEvent) error {
	return nil
}

func (s *stubOrderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) SaveTransition(ctx context.Context, order *model.Order, items []*model.OrderItem, event *model.OutboxEvent) error {
	return nil
}

type stubNotifier struct{}

func (stubNotifier) BookingCreated(ctx context.Context, order *model.Order)       {}
func (stubNotifier) AppointmentConfirmed(ctx context.Context, order *model.Order) {}
func (stubNotifier) AppointmentProposed(ctx context.Context, order *model.Order, alternates model.TimeList) {
}
func (stubNotifier) AppointmentScheduled(ctx context.Context, order *model.Order) {}
func (stubNotifier) ServiceCompleted(ctx context.Context, order *model.Order)     {}
func (stubNotifier) OrderPaid(ctx context.Context, order *model.Order)            {}

func getOrderRequest(h *Handler, orderID, actorID uuid.UUID, role string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: orderID.String()}}
	c.Set(middleware.ContextUserID, actorID)
	c.Set(middleware.ContextRole, role)
	h.GetOrder(c)
	return w
}

func TestGetOrderScopedByRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sellerID := uuid.New()
	buyerID := uuid.New()

	guestOrder := &model.Order{
		SellerID: sellerID,
		Status:   model.OrderStatusPending,
	}
	guestOrder.ID = uuid.New()

	buyerOrder := &model.Order{
		SellerID: sellerID,
		BuyerID:  &buyerID,
		Status:   model.OrderStatusPending,
	}
	buyerOrder.ID = uuid.New()

	repo := &stubOrderRepo{orders: map[uuid.UUID]*model.Order{
		guestOrder.ID: guestOrder,
		buyerOrder.ID: buyerOrder,
	}}
	h := NewHandler(appointment.NewService(repo, stubNotifier{}))

	t.Run("seller reads own guest order", func(t *testing.T) {
		w := getOrderRequest(h, guestOrder.ID, sellerID, auth.RoleSeller)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("buyer reads own order", func(t *testing.T) {
		w := getOrderRequest(h, buyerOrder.ID, buyerID, auth.RoleBuyer)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stranger buyer reads as not found", func(t *testing.T) {
		w := getOrderRequest(h, buyerOrder.ID, uuid.New(), auth.RoleBuyer)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other seller reads as not found", func(t *testing.T) {
		w := getOrderRequest(h, buyerOrder.ID, uuid.New(), auth.RoleSeller)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
