package order

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/service/appointment"
	"github.com/jwalitptl/marketplace-api/pkg/auth"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
	"github.com/jwalitptl/marketplace-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) actor(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid order ID", nil))
		return uuid.Nil, false
	}
	return id, true
}

// ConfirmAppointment lets the seller accept the requested slots as-is.
func (h *Handler) ConfirmAppointment(c *gin.Context) {
	sellerID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.ConfirmAppointment(c.Request.Context(), orderID, sellerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

// RejectPropose declines the requested slots, optionally offering
// alternates. An empty proposal list is a plain rejection.
func (h *Handler) RejectPropose(c *gin.Context) {
	sellerID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req model.RejectProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	order, err := h.service.RejectOrPropose(c.Request.Context(), orderID, sellerID, req.Proposals)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

// AcceptAlternate lets the buyer pick one of the seller's proposed slots.
func (h *Handler) AcceptAlternate(c *gin.Context) {
	buyerID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req model.AcceptAlternateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	order, err := h.service.AcceptAlternate(c.Request.Context(), orderID, buyerID, req.Date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

// CompleteService marks the appointment delivered.
func (h *Handler) CompleteService(c *gin.Context) {
	sellerID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.CompleteService(c.Request.Context(), orderID, sellerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

// Pay settles a completed service order.
func (h *Handler) Pay(c *gin.Context) {
	buyerID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.Pay(c.Request.Context(), orderID, buyerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	// Scope the ownership check by role: a seller reads their side of
	// the order, a buyer theirs.
	sellerID, buyerID := uuid.Nil, actorID
	if c.GetString(middleware.ContextRole) == auth.RoleSeller {
		sellerID, buyerID = actorID, uuid.Nil
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID, sellerID, buyerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, order)
}

// ListOrders returns the actor's orders, scoped by their role.
func (h *Handler) ListOrders(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	filters := &model.OrderFilters{}
	if c.GetString(middleware.ContextRole) == auth.RoleSeller {
		filters.SellerID = actorID
	} else {
		filters.BuyerID = actorID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.OrderStatus(status)
	}

	orders, err := h.service.ListOrders(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, orders)
}
