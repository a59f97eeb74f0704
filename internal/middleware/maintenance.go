package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farm2go/pkg/maintenance"
	"farm2go/pkg/utils"
)

// Maintenance rejects gated requests while a maintenance window is
// open. Mount it on mutating routes; reads stay up when the notice
// allows them.
func Maintenance(manager *maintenance.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !manager.IsActive(c.Request.Context()) {
			c.Next()
			return
		}

		notice := manager.GetNotice(c.Request.Context())
		if notice.AllowReads && c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		if notice.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(notice.RetryAfter))
		}
		utils.ErrorResponse(c, http.StatusServiceUnavailable, notice.Message)
		c.Abort()
	}
}
