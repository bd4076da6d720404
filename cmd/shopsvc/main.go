package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/audit"
	"github.com/dhawalhost/storefront/internal/auth"
	"github.com/dhawalhost/storefront/internal/categories"
	"github.com/dhawalhost/storefront/internal/config"
	"github.com/dhawalhost/storefront/internal/events"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/internal/notify"
	"github.com/dhawalhost/storefront/internal/orders"
	"github.com/dhawalhost/storefront/internal/products"
	"github.com/dhawalhost/storefront/internal/reviews"
	"github.com/dhawalhost/storefront/internal/users"
	"github.com/dhawalhost/storefront/internal/webhooks"
	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/dhawalhost/storefront/pkg/logger"
	"github.com/dhawalhost/storefront/pkg/middleware"
	"github.com/dhawalhost/storefront/pkg/observability"
	"github.com/dhawalhost/storefront/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.TraceSampleRatio,
	}, zl)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			zl.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	db, err := database.NewConnection(ctx, database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	zl.Info("database ready", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	objects, err := objectStore(cfg, zl)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	userStore := users.NewStore(db)
	categoryStore := categories.NewStore(db)
	productStore := products.NewStore(db)
	orderStore := orders.NewStore(db)
	reviewStore := reviews.NewStore(db)

	g := guard.New(ability.NewEngine(ability.BuildRegistry()), zl,
		guard.WithLoader(ability.ResourceUser, users.SnapshotLoader(userStore)),
		guard.WithLoader(ability.ResourceOrder, orders.SnapshotLoader(orderStore)),
		guard.WithRecorder(metrics))

	tokens := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTAccessExpiration)

	userSvc := users.NewService(userStore, tokens, notify.NewLogNotifier(zl), users.Options{
		CodeTTL:         cfg.VerificationCodeTTL,
		MaxFailedLogins: cfg.MaxFailedLogins,
	})
	productSvc := products.NewService(productStore, objects, zl)
	auditSvc := audit.NewService(audit.NewStore(db))
	webhookSvc := webhooks.NewService(db)

	dispatcher := events.NewDispatcher(webhookSvc, zl)
	go dispatcher.Run(ctx)

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	go limiter.Run(ctx, sweepInterval)

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := newRouter(routerDeps{
		logger:      zl,
		db:          db,
		gatherer:    prometheus.DefaultGatherer,
		metrics:     metrics,
		limiter:     limiter,
		corsOrigins: cfg.CORSAllowedOrigins,
		authn:       auth.NewAuthenticator(tokens, zl),
		guard:       g,
		auditTrail:  auditSvc,
		handlers: handlers{
			users:      users.NewHTTPHandler(userSvc, zl),
			categories: categories.NewHTTPHandler(categories.NewService(categoryStore, objects, zl), zl),
			products:   products.NewHTTPHandler(productSvc, zl),
			orders:     orders.NewHTTPHandler(orders.NewService(orderStore, productSvc, dispatcher), zl),
			reviews:    reviews.NewHTTPHandler(reviews.NewService(reviewStore, productSvc, zl), zl),
			audit:      audit.NewHTTPHandler(auditSvc, zl),
			webhooks:   webhooks.NewHTTPHandler(webhookSvc, zl),
		},
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zl.Info("HTTP server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zl.Info("HTTP server stopped")
	return nil
}

func objectStore(cfg *config.Config, zl *zap.Logger) (storage.ObjectStore, error) {
	if cfg.S3Bucket == "" {
		zl.Warn("S3_BUCKET not set, image uploads are disabled")
		return storage.Disabled{}, nil
	}
	store, err := storage.NewS3Store(storage.Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}
	return store, nil
}
