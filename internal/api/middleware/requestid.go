package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/stratocompute/stratos/backend/internal/shared/id"
)

// RequestIDKey is the gin context key carrying the request id.
const RequestIDKey = "request_id"

// RequestIDHeader carries the request id on the wire.
const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with a ULID. Inbound ids are honored so
// callers can stitch traces across services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = id.NewRequestID().String()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}
