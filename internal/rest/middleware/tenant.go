package middleware

import (
	"strings"

	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware scopes the request to the tenant and user named in the
// X-Tenant-ID and X-User-ID headers. Requests without a tenant are rejected.
func TenantMiddleware(c *gin.Context) {
	tenantID := strings.TrimSpace(c.GetHeader(types.HeaderTenantID))
	if tenantID == "" {
		c.Error(ierr.NewError("missing tenant").
			WithHintf("The %s header is required", types.HeaderTenantID).
			Mark(ierr.ErrPermissionDenied))
		c.Abort()
		return
	}

	ctx := types.SetTenantID(c.Request.Context(), tenantID)
	if userID := strings.TrimSpace(c.GetHeader(types.HeaderUserID)); userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
