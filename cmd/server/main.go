package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	appintegration "github.com/santi-naranjo/catalog-ai/internal/application/integration"
	"github.com/santi-naranjo/catalog-ai/internal/domain/integration"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/auth"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/cache"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/ecommerce"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/logger"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/persistence"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/scheduler"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/secrets"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/storage"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/telemetry"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/handler"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/middleware"
	"github.com/santi-naranjo/catalog-ai/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger used until the OTEL log bridge is ready
	bootLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize OTEL log provider", zap.Error(err))
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		bootLog.Fatal("Invalid log level", zap.Error(err))
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, logProvider.ZapCore(level))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Catalog AI",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter("catalog-ai/integration"))
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormConfig{
		Level:         logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		LogParams:     cfg.Telemetry.DBLogFullSQL,
	})
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if stats, err := db.Stats(); err == nil {
		log.Info("Database connected successfully",
			zap.Int("max_open_connections", stats.MaxOpenConnections),
			zap.Int("open_connections", stats.OpenConnections),
		)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	publishedProductRepo := persistence.NewGormPublishedProductRepository(db.DB)
	connectionRepo := persistence.NewGormTenantConnectionRepository(db.DB)
	masterProductRepo := persistence.NewGormMasterProductRepository(db.DB)

	// Platform adapters
	registry := ecommerce.NewRegistry(registryConfig(cfg.Integration))

	// Retry policy
	retryPolicy, err := appintegration.NewRetryPolicy(cfg.Retry.Policy, cfg.Retry.BaseDelay, cfg.Retry.MaxDelay)
	if err != nil {
		log.Fatal("Invalid retry policy", zap.Error(err))
	}

	orchestratorOpts := []appintegration.OrchestratorOption{
		appintegration.WithRetryPolicy(retryPolicy),
		appintegration.WithRecorder(syncMetrics),
		appintegration.WithLogger(log),
		appintegration.WithAdapterTimeout(cfg.Integration.AdapterTimeout),
		appintegration.WithStuckAfter(cfg.Integration.StuckAfter),
	}

	// Credential references
	if cfg.Secrets.Enabled {
		resolver, err := secrets.NewAWSCredentialResolver(ctx, &cfg.Secrets, secrets.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize secrets resolver", zap.Error(err))
		}
		orchestratorOpts = append(orchestratorOpts, appintegration.WithCredentialResolver(resolver))
		log.Info("AWS Secrets Manager credential references enabled")
	} else {
		orchestratorOpts = append(orchestratorOpts, appintegration.WithCredentialResolver(secrets.PlainResolver{}))
	}

	// Image URLs
	if cfg.Storage.Enabled {
		images, err := storage.NewS3ImageResolver(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize image resolver", zap.Error(err))
		}
		orchestratorOpts = append(orchestratorOpts, appintegration.WithImageURLResolver(images))
		log.Info("S3 image resolver enabled", zap.String("bucket", images.Bucket()))
	}

	orchestrator := appintegration.NewSyncOrchestrator(
		publishedProductRepo,
		connectionRepo,
		masterProductRepo,
		registry,
		orchestratorOpts...,
	)

	healthChecks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}

	// Automatic retry sweep
	var sweepScheduler *scheduler.RetrySweepScheduler
	var redisClient *redis.Client
	if cfg.Sweep.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		sweeper := appintegration.NewRetrySweeper(
			publishedProductRepo,
			orchestrator,
			nil,
			appintegration.RetrySweeperConfig{
				BatchSize:   cfg.Sweep.BatchSize,
				MaxAttempts: cfg.Retry.MaxAttempts,
			},
			log,
		)
		sweeper.SetRecorder(syncMetrics)

		sweepScheduler, err = scheduler.NewRetrySweepScheduler(
			scheduler.RetrySweepSchedulerConfig{
				Interval: cfg.Sweep.Interval,
				Workers:  cfg.Sweep.Workers,
				LockKey:  cfg.Sweep.LockKey,
				LockTTL:  cfg.Sweep.LockTTL,
			},
			sweeper,
			cache.NewRedisSweepLock(redisClient),
			syncMetrics,
			log,
		)
		if err != nil {
			log.Fatal("Failed to create retry sweep scheduler", zap.Error(err))
		}
		if err := sweepScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start retry sweep scheduler", zap.Error(err))
		}
		log.Info("Retry sweep scheduler started", zap.Duration("interval", cfg.Sweep.Interval))
	}

	// HTTP
	verifier := auth.NewTokenVerifier(cfg.Auth)
	engine, err := router.New(router.Config{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		TenantAuth: middleware.TenantAuthConfig{
			Verifier:    verifier,
			AllowHeader: cfg.Auth.AllowTenantHeader,
			Logger:      log,
		},
		TrustedProxies:    cfg.HTTP.TrustedProxies,
		PublishedProducts: handler.NewPublishedProductHandler(orchestrator),
		Health:            handler.NewHealthHandler(healthChecks),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping retry sweep scheduler", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registryConfig maps the integration settings onto the adapter registry
func registryConfig(cfg config.IntegrationConfig) ecommerce.RegistryConfig {
	endpoint := func(ep config.PlatformEndpointConfig) ecommerce.EndpointConfig {
		return ecommerce.EndpointConfig{
			BaseURL:           ep.BaseURL,
			RequestsPerSecond: ep.RequestsPerSecond,
			Burst:             ep.Burst,
		}
	}
	return ecommerce.RegistryConfig{
		RequestTimeout:      cfg.RequestTimeout,
		AmazonMarketplaceID: cfg.AmazonMarketplaceID,
		Endpoints: map[integration.PlatformKind]ecommerce.EndpointConfig{
			integration.PlatformShopify:      endpoint(cfg.Shopify),
			integration.PlatformVTEX:         endpoint(cfg.VTEX),
			integration.PlatformMercadoLibre: endpoint(cfg.MercadoLibre),
			integration.PlatformAmazon:       endpoint(cfg.Amazon),
		},
	}
}
