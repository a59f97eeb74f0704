package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"farm2go/pkg/snowflake"
)

// RequestIDKey context key of the request id
const RequestIDKey = "request_id"

// RequestIDHeader response header carrying the request id
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a snowflake id for log correlation.
// An id supplied by a trusted proxy is kept, so the trace spans hops.
func RequestID(gen *snowflake.IDGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = strconv.FormatInt(gen.NextID(), 10)
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID reads the request id set by RequestID.
func GetRequestID(c *gin.Context) (string, bool) {
	v, ok := c.Get(RequestIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
