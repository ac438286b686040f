package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header carrying the request correlation ID
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin context key holding the correlation ID
	RequestIDKey = "request_id"
)

// RequestIDMiddleware attaches a correlation ID to every request. An ID
// supplied by the caller is kept so upstream proxies can correlate logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}
