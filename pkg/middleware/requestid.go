package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultRequestIDHeader carries the request identifier in both directions.
const DefaultRequestIDHeader = "X-Request-ID"

// requestIDContextKey is an unexported key type to avoid collisions in the Gin context store.
type requestIDContextKey string

const requestIDKey requestIDContextKey = "requestID"

const maxRequestIDLength = 128

// RequestID returns a Gin middleware that propagates the caller's request id or
// assigns a fresh UUID, echoes it on the response and stores it on the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(DefaultRequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(DefaultRequestIDHeader, id)
		c.Set(string(requestIDKey), id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey, id))
		c.Next()
	}
}

// RequestIDFromGinContext extracts the identifier stored by RequestID.
func RequestIDFromGinContext(c *gin.Context) (string, error) {
	if value, ok := c.Get(string(requestIDKey)); ok {
		if id, ok := value.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("request id not found in context")
}

// RequestIDFromContext extracts the identifier from a standard context.
func RequestIDFromContext(ctx context.Context) (string, error) {
	if value := ctx.Value(requestIDKey); value != nil {
		if id, ok := value.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("request id not found in context")
}
