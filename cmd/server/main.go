package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopmigrate/backend/internal/application/converter"
	"github.com/shopmigrate/backend/internal/application/pipeline"
	"github.com/shopmigrate/backend/internal/domain/migration"
	"github.com/shopmigrate/backend/internal/infrastructure/config"
	"github.com/shopmigrate/backend/internal/infrastructure/gateway"
	"github.com/shopmigrate/backend/internal/infrastructure/logger"
	"github.com/shopmigrate/backend/internal/infrastructure/messaging"
	"github.com/shopmigrate/backend/internal/infrastructure/persistence"
	"github.com/shopmigrate/backend/internal/interfaces/http/handler"
	"github.com/shopmigrate/backend/internal/interfaces/http/middleware"
	"github.com/shopmigrate/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting shopmigrate backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	runRepo := persistence.NewGormRunRepository(db.DB)
	dataRepo := persistence.NewGormDataRecordRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	logRepo := persistence.NewGormLogEntryRepository(db.DB)
	mediaFileRepo := persistence.NewGormMediaFileRepository(db.DB)
	cleanupRepo := persistence.NewGormCleanupRepository(db.DB)
	targetLookup := persistence.NewGormTargetLookup(db.DB)
	targetWriter := persistence.NewGormTargetWriter(db.DB,
		migration.EntityCustomer,
		migration.EntityOrder,
	)

	// Source gateways
	gateways := migration.NewGatewayRegistry()
	gateways.Register(gateway.NewHTTPGateway(cfg.Migration.GatewayTimeout, log))

	// Core pipeline services
	mappingService := pipeline.NewMappingService(mappingRepo, targetLookup, log)
	loggingService := pipeline.NewLoggingService(logRepo, log)
	mediaFileService := pipeline.NewMediaFileService(mediaFileRepo, log)

	// Converters for the configured source profile
	profile := cfg.Migration.SourceProfile
	taxCalculator := converter.NewTaxCalculator()
	orderConverter := converter.NewOrderConverter(mappingService, loggingService, taxCalculator, profile)
	orderConverter.SetMediaFileService(mediaFileService)
	converterRegistry := converter.NewRegistry(
		converter.NewCustomerConverter(mappingService, loggingService, profile),
		orderConverter,
	)

	// Pipeline steps
	fetcher := pipeline.NewDataFetcher(gateways, dataRepo, log)
	dataConverter := pipeline.NewDataConverter(converterRegistry, dataRepo, loggingService, log)
	writers := migration.NewWriterRegistry(targetWriter)
	dataWriter := pipeline.NewDataWriter(writers, dataRepo, mappingRepo, loggingService, log)

	// Premapping readers for the source choice sets
	premappingService := pipeline.NewPremappingService(
		[]pipeline.PremappingReader{
			pipeline.NewOrderStateReader(gateways, targetLookup, mappingService),
			pipeline.NewTransactionStateReader(gateways, targetLookup, mappingService),
			pipeline.NewPaymentMethodReader(gateways, targetLookup, mappingService),
			pipeline.NewSalutationReader(gateways, targetLookup, mappingService),
			pipeline.NewShippingAvailabilityRuleReader(targetLookup, mappingService),
			pipeline.NewDeliveryTimeReader(targetLookup, mappingService),
		},
		connectionRepo,
		mappingService,
		log,
	)

	runService := pipeline.NewRunService(
		runRepo,
		connectionRepo,
		fetcher,
		dataConverter,
		dataWriter,
		premappingService,
		loggingService,
		log,
		pipeline.RunConfig{
			PageSize:  cfg.Migration.PageSize,
			ChunkSize: cfg.Migration.ChunkSize,
		},
	)

	// Message bus and cleanup cascade
	bus := messaging.NewInMemoryBus(log)
	cleanupHandler := pipeline.NewCleanupHandler(cleanupRepo, bus, log)
	bus.Subscribe(cleanupHandler)
	if err := bus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start message bus", zap.Error(err))
	}
	defer func() {
		if err := bus.Stop(context.Background()); err != nil {
			log.Error("Error stopping message bus", zap.Error(err))
		}
	}()

	// HTTP handlers
	migrationHandler := handler.NewMigrationHandler(connectionRepo, runService, premappingService, cleanupHandler, mediaFileService, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(migrationHandler)
	r.Setup()

	// Create HTTP server with config
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
