package handler

import (
	"errors"
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Receive handles POST /v1/inventory/receive.
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rec, err := h.svc.Receive(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("stock receive failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"inventory_id": rec.ID.String(),
		"quantity":     rec.Quantity,
	})
}
