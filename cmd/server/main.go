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

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/infrastructure/cache"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/infrastructure/event"
	"github.com/billing/backend/internal/infrastructure/logger"
	"github.com/billing/backend/internal/infrastructure/payment"
	"github.com/billing/backend/internal/infrastructure/persistence"
	"github.com/billing/backend/internal/interfaces/http/handler"
	"github.com/billing/backend/internal/interfaces/http/middleware"
	"github.com/billing/backend/internal/interfaces/http/router"
)

//	@title			Billing Backend API
//	@version		1.0
//	@description	Invoicing backend for small businesses: clients, invoices with VAT breakdown, Pay by Square payment codes.

//	@host		localhost:8080
//	@BasePath	/api/v1

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
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(cfg.Database.SlowQueryThreshold))

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

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	clientRepo := persistence.NewGormClientRepository(db.DB)
	profileRepo := persistence.NewGormCompanyProfileRepository(db.DB)
	numberSequence := persistence.NewGormNumberSequence(db.DB)

	// Invoice number allocation: fail fast on contention, optionally
	// falling back to random-suffix numbers
	numberIssuer := billing.NewNumberIssuer(numberSequence, cfg.Billing.NumberFallbackEnabled)

	// Idempotency store: Redis when reachable, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	defaultVATRate, err := valueobject.NewVATRate(cfg.Billing.DefaultVATRate)
	if err != nil {
		log.Fatal("Invalid default VAT rate", zap.Error(err))
	}

	// Initialize application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, profileRepo, numberIssuer, idempotencyStore, defaultVATRate, log)
	clientService := billingapp.NewClientService(clientRepo, log)
	profileService := billingapp.NewCompanyProfileService(profileRepo, log)

	invoiceService.SetPaymentStringGenerator(payment.NewPayBySquareGenerator())

	// Initialize event bus and the audit trail handler. The audit handler
	// is wrapped so redelivered events are not logged twice.
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewIdempotentHandler(event.NewBillingAuditHandler(log), idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: cfg.Billing.IdempotencyTTL}))
	eventBus.Subscribe(auditHandler)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	invoiceService.SetEventPublisher(eventBus)

	// Periodic overdue sweep
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	if cfg.Billing.OverdueSweepEnabled {
		go runOverdueSweep(sweepCtx, invoiceService, cfg.Billing.OverdueSweepInterval, log)
		log.Info("Overdue sweep enabled", zap.Duration("interval", cfg.Billing.OverdueSweepInterval))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitLimit, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("limit", cfg.HTTP.RateLimitLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewInvoiceHandler(invoiceService)).
		Register(handler.NewClientHandler(clientService)).
		Register(handler.NewCompanyProfileHandler(profileService)).
		Register(handler.NewSystemHandler(db.DB))
	r.Setup()

	// Simple ping at root level for load balancer probes
	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "ok"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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

	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// runOverdueSweep periodically flags past-due invoices as overdue until the
// context is cancelled
func runOverdueSweep(ctx context.Context, invoiceService *billingapp.InvoiceService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			marked, err := invoiceService.MarkOverdue(ctx)
			if err != nil {
				log.Error("Overdue sweep failed", zap.Error(err))
				continue
			}
			if marked > 0 {
				log.Info("Overdue sweep marked invoices", zap.Int("count", marked))
			}
		}
	}
}
