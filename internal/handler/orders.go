package handler

import (
	"errors"
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/service"
	"tillsync/internal/tenantctx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrdersHandler struct{ svc service.OrderService }

func NewOrdersHandler(svc service.OrderService) *OrdersHandler { return &OrdersHandler{svc: svc} }

// Create handles POST /v1/orders. Returns 201 for a newly created order and
// 200 when the temp_id matched an already-committed one.
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, existing, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return
		}
		// Transactional failure: everything rolled back, no partial state.
		c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("order could not be processed"))
		return
	}
	if existing {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateStatus handles PUT /v1/orders/:id/status.
func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order id"))
		return
	}
	var req dto.UpdateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), id, req); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		case errors.Is(err, service.ErrOrderNotFound):
			c.JSON(http.StatusInternalServerError, apierror.New(err.Error()))
		default:
			c.Error(err)
			c.JSON(http.StatusInternalServerError, apierror.New("status could not be updated"))
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Get handles GET /v1/orders/:id (tenant header required).
func (h *OrdersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid order id"))
		return
	}
	tenantID, err := tenantctx.From(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("X-Tenant-ID header required"))
		return
	}
	resp, err := h.svc.GetOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("order not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
