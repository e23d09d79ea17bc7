package middleware

import (
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/tenantctx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TenantHeader requires X-Tenant-ID on tenant-scoped reads and threads the
// tenant into the request context. Writes carry tenant_id in the body
// instead and validate it in the service layer.
func TenantHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Tenant-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New("X-Tenant-ID header required"))
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New("X-Tenant-ID must be a UUID"))
			return
		}
		c.Request = c.Request.WithContext(tenantctx.With(c.Request.Context(), tenantID))
		c.Next()
	}
}
