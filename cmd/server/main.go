package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/channelpilot/backend/internal/application/adspend"
	profitapp "github.com/channelpilot/backend/internal/application/profit"
	ordersync "github.com/channelpilot/backend/internal/application/sync"
	"github.com/channelpilot/backend/internal/application/tracking"
	appwebhook "github.com/channelpilot/backend/internal/application/webhook"
	"github.com/channelpilot/backend/internal/domain/channel"
	"github.com/channelpilot/backend/internal/domain/integration"
	"github.com/channelpilot/backend/internal/infrastructure/auth"
	"github.com/channelpilot/backend/internal/infrastructure/cache"
	"github.com/channelpilot/backend/internal/infrastructure/config"
	"github.com/channelpilot/backend/internal/infrastructure/logger"
	"github.com/channelpilot/backend/internal/infrastructure/persistence"
	"github.com/channelpilot/backend/internal/infrastructure/providers"
	"github.com/channelpilot/backend/internal/infrastructure/scheduler"
	"github.com/channelpilot/backend/internal/interfaces/http/handler"
	"github.com/channelpilot/backend/internal/interfaces/http/middleware"
	"github.com/channelpilot/backend/internal/interfaces/http/router"
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

	log.Info("Starting channel sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	accountRepo := persistence.NewGormChannelAccountRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	shipmentRepo := persistence.NewGormShipmentRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	profitRepo := persistence.NewGormProfitRepository(db.DB)
	skuCostRepo := persistence.NewGormSkuCostRepository(db.DB)
	adSpendRepo := persistence.NewGormAdSpendRepository(db.DB)

	credentialStore, err := persistence.NewGormCredentialStore(db.DB, []byte(cfg.Security.CredentialKey))
	if err != nil {
		log.Fatal("Failed to initialize credential store", zap.Error(err))
	}

	// Redis-backed dedup and sync locking, falling back to in-memory when
	// no Redis is configured
	cacheFactory := cache.NewFactory(cfg.Redis)
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing cache connections", zap.Error(err))
		}
	}()
	dedupStore, err := cacheFactory.DedupStore()
	if err != nil {
		log.Fatal("Failed to initialize webhook dedup store", zap.Error(err))
	}
	syncLocker, err := cacheFactory.SyncLocker()
	if err != nil {
		log.Fatal("Failed to initialize sync locker", zap.Error(err))
	}

	// Credential resolution: user-saved payloads win over config fallbacks
	resolver := channel.NewResolver(
		channel.NewStoreSource(credentialStore),
		channel.NewStaticSource("config", cfg.Providers.StaticCredentials()),
	)

	// Provider adapters
	shopifyAdapter, err := providers.NewShopifyAdapter(&providers.ShopifyConfig{
		Timeout:    cfg.Providers.HTTPTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to build Shopify adapter", zap.Error(err))
	}
	flipkartAdapter, err := providers.NewFlipkartAdapter(&providers.FlipkartConfig{
		BaseURL:    providers.FlipkartProductionBaseURL,
		Timeout:    cfg.Providers.HTTPTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to build Flipkart adapter", zap.Error(err))
	}
	selloshipAdapter, err := providers.NewSelloshipAdapter(&providers.SelloshipConfig{
		BaseURL:    providers.SelloshipProductionBaseURL,
		Timeout:    cfg.Providers.HTTPTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to build Selloship adapter", zap.Error(err))
	}
	delhiveryAdapter, err := providers.NewDelhiveryAdapter(&providers.DelhiveryConfig{
		BaseURL:    providers.DelhiveryProductionBaseURL,
		Timeout:    cfg.Providers.HTTPTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to build Delhivery adapter", zap.Error(err))
	}
	metaAdapter, err := providers.NewMetaAdsAdapter(&providers.MetaAdsConfig{
		Timeout:    cfg.Providers.HTTPTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
	})
	if err != nil {
		log.Fatal("Failed to build Meta Ads adapter", zap.Error(err))
	}

	registry := integration.NewRegistry()
	registry.RegisterOrderSource(shopifyAdapter)
	registry.RegisterOrderSource(flipkartAdapter)
	registry.RegisterTrackingSource(selloshipAdapter)
	registry.RegisterTrackingSource(delhiveryAdapter)
	registry.RegisterSpendSource(metaAdapter)

	// Application services
	profitService := profitapp.NewService(orderRepo, shipmentRepo, profitRepo, skuCostRepo, adSpendRepo, log)
	costImporter := profitapp.NewCostImporter(skuCostRepo, log)
	persister := ordersync.NewOrderPersister(orderRepo, inventoryRepo, profitService, log)
	syncEngine := ordersync.NewEngine(registry, resolver, persister, accountRepo, syncJobRepo, syncLocker,
		ordersync.Config{
			LockTTL:  cfg.Sync.LockTTL,
			Lookback: cfg.Sync.Lookback,
		}, log)
	trackingService := tracking.NewService(registry, resolver, shipmentRepo, profitService,
		tracking.Config{
			Freshness:   cfg.Tracking.Freshness,
			BatchSize:   cfg.Tracking.BatchSize,
			SelectLimit: cfg.Tracking.SelectLimit,
		}, log)

	usdToINR, err := decimal.NewFromString(cfg.AdSpend.USDToINR)
	if err != nil {
		log.Fatal("Invalid USD to INR rate", zap.String("rate", cfg.AdSpend.USDToINR), zap.Error(err))
	}
	adSpendService := adspend.NewService(registry, resolver, adSpendRepo,
		adspend.Config{USDToINR: usdToINR}, log)

	// Webhook ingestion
	pipeline := appwebhook.NewPipeline(accountRepo, resolver, dedupStore, webhookEventRepo, cfg.Webhook.DedupTTL, log)
	shopifyHandlers := appwebhook.NewOrderHandlers(shopifyAdapter, persister, orderRepo, shipmentRepo, profitService, log)
	shopifyHandlers.RegisterAll(pipeline)
	flipkartHandlers := appwebhook.NewOrderHandlers(flipkartAdapter, persister, orderRepo, shipmentRepo, profitService, log)
	pipeline.Register(providers.FlipkartTopicOrderCreated, flipkartHandlers.UpsertOrder)
	pipeline.Register(providers.FlipkartTopicOrderUpdated, flipkartHandlers.UpsertOrder)
	pipeline.Register(providers.FlipkartTopicShipmentCreated, flipkartHandlers.CreateShipment)

	// Background workers
	supervisorCfg := scheduler.DefaultConfig()
	if cfg.Sync.Interval > 0 {
		supervisorCfg.SyncInterval = cfg.Sync.Interval
	}
	if cfg.Tracking.Interval > 0 {
		supervisorCfg.TrackingInterval = cfg.Tracking.Interval
	}
	if cfg.Tracking.InitialDelayMax > 0 {
		supervisorCfg.TrackingInitialDelayMax = cfg.Tracking.InitialDelayMax
	}
	if cfg.AdSpend.Interval > 0 {
		supervisorCfg.AdSpendCheckInterval = cfg.AdSpend.Interval
	}
	supervisor, err := scheduler.NewWorkerSupervisor(supervisorCfg, registry, accountRepo, syncEngine, trackingService, adSpendService, log)
	if err != nil {
		log.Fatal("Failed to build worker supervisor", zap.Error(err))
	}
	if cfg.Sync.Enabled || cfg.Tracking.Enabled || cfg.AdSpend.Enabled {
		if err := supervisor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start worker supervisor", zap.Error(err))
		}
	} else {
		log.Info("Background workers disabled by configuration")
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	jwtService := auth.NewJWTService(cfg.JWT)
	authMW := middleware.JWTAuth(jwtService)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(cfg.App.Name, cfg.App.Env))
	r.Register(handler.NewWebhookHandler(pipeline))
	r.Register(handler.NewChannelHandler(accountRepo, syncJobRepo, syncEngine, authMW))
	r.Register(handler.NewOrderHandler(orderRepo, authMW))
	r.Register(handler.NewProfitHandler(profitService, costImporter, profitRepo, skuCostRepo, orderRepo, authMW))
	r.Register(handler.NewAdSpendHandler(adSpendService, authMW))
	r.Register(handler.NewWebhookEventHandler(webhookEventRepo, authMW))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := supervisor.Stop(ctx); err != nil {
		log.Error("Worker supervisor did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness including database reachability
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
