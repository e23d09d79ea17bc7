package handler

import (
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/dto"
	"tillsync/internal/service"
	"tillsync/internal/tenantctx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SyncHandler struct{ svc service.SyncService }

func NewSyncHandler(svc service.SyncService) *SyncHandler { return &SyncHandler{svc: svc} }

// Deltas handles GET /v1/sync?since=N — the catch-up feed for disconnected
// terminals. X-Tenant-ID is enforced by the tenant middleware.
func (h *SyncHandler) Deltas(c *gin.Context) {
	tenantID, err := tenantctx.From(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("X-Tenant-ID header required"))
		return
	}
	var filter dto.SyncFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.DeltasSince(c.Request.Context(), tenantID, filter)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("sync feed unavailable"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Record handles GET /v1/records/:table/:id — the single-record snapshot the
// pull loop re-fetches instead of applying delta payloads.
func (h *SyncHandler) Record(c *gin.Context) {
	tenantID, err := tenantctx.From(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("X-Tenant-ID header required"))
		return
	}
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid record id"))
		return
	}
	row, err := h.svc.FetchRecord(c.Request.Context(), tenantID, c.Param("table"), recordID)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("record not found"))
		return
	}
	c.JSON(http.StatusOK, row)
}
