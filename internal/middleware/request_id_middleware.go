package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the Gin context key under which the request ID is stored.
const RequestIDKey = "requestID"

// requestIDHeader is the header carrying the request ID in and out.
const requestIDHeader = "X-Request-ID"

// RequestID returns a gin.HandlerFunc that assigns each request an ID.
// An inbound X-Request-ID is honored so IDs correlate across services;
// otherwise a fresh UUID is generated. The ID is echoed in the response
// header and stored in the context for the request logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}
