package main

import (
	"context"
	"net/http"
	"time"

	"github.com/dhawalhost/storefront/internal/audit"
	"github.com/dhawalhost/storefront/internal/auth"
	"github.com/dhawalhost/storefront/internal/categories"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/internal/orders"
	"github.com/dhawalhost/storefront/internal/products"
	"github.com/dhawalhost/storefront/internal/reviews"
	"github.com/dhawalhost/storefront/internal/users"
	"github.com/dhawalhost/storefront/internal/webhooks"
	"github.com/dhawalhost/storefront/pkg/middleware"
	"github.com/dhawalhost/storefront/pkg/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "storefront"

// pinger reports whether the database is reachable.
type pinger interface {
	PingContext(ctx context.Context) error
}

// handlers groups the REST resources mounted under /api/v1.
type handlers struct {
	users      *users.HTTPHandler
	categories *categories.HTTPHandler
	products   *products.HTTPHandler
	orders     *orders.HTTPHandler
	reviews    *reviews.HTTPHandler
	audit      *audit.HTTPHandler
	webhooks   *webhooks.HTTPHandler
}

type routerDeps struct {
	logger      *zap.Logger
	db          pinger
	gatherer    prometheus.Gatherer
	metrics     *observability.Metrics
	limiter     *middleware.IPRateLimiter
	corsOrigins []string
	authn       *auth.Authenticator
	guard       *guard.Guard
	auditTrail  audit.Service
	handlers    handlers
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(accessLog(d.logger))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(cors.New(corsConfig(d.corsOrigins)))
	router.Use(observability.PrometheusMiddleware(d.metrics))
	router.Use(d.limiter.Middleware())

	router.GET("/health", health(d.db))
	router.GET("/metrics", gin.WrapH(observability.PrometheusHandler(d.gatherer)))

	api := router.Group("/api/v1", audit.Trail(d.auditTrail, d.logger))
	authn := d.authn.Required()
	d.handlers.users.RegisterRoutes(api, authn, d.guard)
	d.handlers.categories.RegisterRoutes(api, authn, d.guard)
	d.handlers.products.RegisterRoutes(api, authn, d.guard)
	d.handlers.orders.RegisterRoutes(api, authn, d.guard)
	d.handlers.reviews.RegisterRoutes(api, authn, d.guard)
	d.handlers.audit.RegisterRoutes(api, authn, d.guard)
	d.handlers.webhooks.RegisterRoutes(api, authn, d.guard)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.DefaultRequestIDHeader}
	cfg.ExposeHeaders = []string{middleware.DefaultRequestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func health(db pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := middleware.RequestIDFromGinContext(c)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", requestID))
	}
}
