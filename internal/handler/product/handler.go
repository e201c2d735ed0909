package product

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/internal/model"
	"github.com/jwalitptl/marketplace-api/internal/service/availability"
	"github.com/jwalitptl/marketplace-api/internal/service/product"
	apperrors "github.com/jwalitptl/marketplace-api/pkg/errors"
	"github.com/jwalitptl/marketplace-api/pkg/httputil"
)

type Handler struct {
	products     *product.Service
	availability *availability.Service
}

func NewHandler(products *product.Service, avail *availability.Service) *Handler {
	return &Handler{products: products, availability: avail}
}

// GetAvailability returns the bookable slot calendar for a service product.
// Optional query params: start (YYYY-MM-DD, defaults to today) and days.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid product ID", nil))
		return
	}

	start := time.Now()
	if s := c.Query("start"); s != "" {
		start, err = time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid start date, expected YYYY-MM-DD", nil))
			return
		}
	}

	days := 0
	if d := c.Query("days"); d != "" {
		days, err = strconv.Atoi(d)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid days parameter", nil))
			return
		}
	}

	resp, err := h.availability.GetProductAvailability(c.Request.Context(), id, start, days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	sellerID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	p, err := h.products.CreateProduct(c.Request.Context(), sellerID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, p)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid product ID", nil))
		return
	}

	p, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	sellerID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid product ID", nil))
		return
	}

	var req model.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error(), err))
		return
	}

	p, err := h.products.UpdateProduct(c.Request.Context(), id, sellerID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	sellerID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid product ID", nil))
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id, sellerID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) ListProducts(c *gin.Context) {
	sellerID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	products, err := h.products.ListProducts(c.Request.Context(), sellerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, products)
}
