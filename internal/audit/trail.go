package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const writeTimeout = 2 * time.Second

// Trail returns a Gin middleware that records every state changing request
// once the handler chain has finished. Reads pass through unrecorded.
func Trail(svc Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		c.Next()

		e := Event{
			Action:    c.Request.Method,
			Route:     c.FullPath(),
			Status:    c.Writer.Status(),
			Outcome:   outcome(c.Writer.Status()),
			IPAddress: optional(c.ClientIP()),
			UserAgent: optional(c.Request.UserAgent()),
		}
		if e.Route == "" {
			e.Route = c.Request.URL.Path
		}
		if p, err := guard.PrincipalFromGinContext(c); err == nil {
			e.ActorID = optional(p.ID)
			e.ActorRole = optional(string(p.Role))
		}
		e.ResourceID = resourceID(c)
		if id, err := middleware.RequestIDFromGinContext(c); err == nil {
			e.RequestID = optional(id)
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), writeTimeout)
		defer cancel()
		if err := svc.Log(ctx, e); err != nil {
			logger.Warn("failed to record audit event",
				zap.String("route", e.Route),
				zap.Int("status", e.Status),
				zap.Error(err))
		}
	}
}

func outcome(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return OutcomeDenied
	case status >= http.StatusBadRequest:
		return OutcomeFailure
	default:
		return OutcomeSuccess
	}
}

// resourceID picks the first route parameter that names an entity.
func resourceID(c *gin.Context) *string {
	for _, name := range []string{guard.EntityParam, "userId", "productId"} {
		if v := c.Param(name); v != "" {
			return optional(v)
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
