package checkout

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/service/checkout"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
	"github.com/jwalitptl/marketplace-api/pkg/httputil"
)

type Handler struct {
	service *checkout.Service
}

func NewHandler(service *checkout.Service) *Handler {
	return &Handler{service: service}
}

// Checkout creates one order per seller from the cart. Either every
// order lands or none do.
func (h *Handler) Checkout(c *gin.Context) {
	// Guest checkouts carry no token; the order is created without a
	// buyer and stays seller-driven.
	buyerID, _ := middleware.UserID(c)

	var req model.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	orders, err := h.service.Checkout(c.Request.Context(), buyerID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, gin.H{"orders": orders})
}
