package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	treasuryapp "github.com/erp/treasury/internal/application/treasury"
	"github.com/erp/treasury/internal/domain/shared"
	"github.com/erp/treasury/internal/domain/treasury"
	"github.com/erp/treasury/internal/infrastructure/cache"
	"github.com/erp/treasury/internal/infrastructure/config"
	"github.com/erp/treasury/internal/infrastructure/logger"
	"github.com/erp/treasury/internal/infrastructure/persistence"
	"github.com/erp/treasury/internal/interfaces/http/handler"
	"github.com/erp/treasury/internal/interfaces/http/middleware"
	"github.com/erp/treasury/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	log.Info("Starting Treasury API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store: Redis, falling back to in-memory for local runs
	idemFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idemStore, err := idemFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	idemConfig := shared.IdempotencyConfig{
		Enabled: cfg.Idempotency.Enabled,
		TTL:     cfg.Idempotency.TTL,
	}

	// Initialize repositories
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	instrumentRepo := persistence.NewGormInstrumentRepository(db.DB)
	fundRepoRepo := persistence.NewGormFundRepositoryRepository(db.DB)
	partnerRepo := persistence.NewGormPartnerRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	toleranceRepo := persistence.NewGormToleranceSettingsRepository(db.DB)
	invoiceIndex := persistence.NewGormOpenInvoiceIndex(db.DB)
	documentBalances := persistence.NewGormDocumentBalanceService(db.DB)
	journalPosting := persistence.NewGormJournalPostingService(db.DB)
	refundHolds := persistence.NewGormRefundHoldService(db.DB)
	companySettings := persistence.NewGormCompanySettingsProvider(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)

	// System tier of the tolerance cascade comes from configuration
	systemTolerance := treasury.ToleranceSettings{
		Enabled:    cfg.Tolerance.Enabled,
		Percentage: cfg.Tolerance.TolerancePercentage(),
		MaxAmount:  cfg.Tolerance.ToleranceMaxAmount(),
		Source:     treasury.ToleranceSourceSystem,
	}

	// Initialize application services
	toleranceService := treasuryapp.NewToleranceService(toleranceRepo, companySettings, systemTolerance, log)
	allocationService := treasuryapp.NewAllocationService(invoiceIndex, toleranceService)
	ledgerService := treasuryapp.NewLedgerService(fundRepoRepo, ledgerRepo, idemStore, idemConfig, txManager, log)
	paymentService := treasuryapp.NewPaymentService(
		paymentRepo, instrumentRepo, fundRepoRepo, partnerRepo,
		invoiceIndex, documentBalances, journalPosting, refundHolds,
		toleranceService, ledgerService, txManager, log,
	)
	instrumentService := treasuryapp.NewInstrumentService(
		instrumentRepo, fundRepoRepo, paymentService, ledgerService, txManager, log,
	)
	fundRepositoryService := treasuryapp.NewFundRepositoryService(fundRepoRepo, ledgerRepo, txManager, log)

	// Initialize HTTP handlers
	paymentHandler := handler.NewPaymentHandler(paymentService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	instrumentHandler := handler.NewInstrumentHandler(instrumentService)
	repositoryHandler := handler.NewRepositoryHandler(fundRepositoryService, ledgerService)
	toleranceHandler := handler.NewToleranceHandler(toleranceService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so recovery and request logs
	// carry it, then panic recovery, request logging and CORS
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// API routes: everything under /api/v1 requires a tenant
	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))
	r.Register(paymentHandler).
		Register(allocationHandler).
		Register(instrumentHandler).
		Register(repositoryHandler).
		Register(toleranceHandler).
		Register(systemHandler)
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
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
