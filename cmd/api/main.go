package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "construction-pos/api/swagger" // swagger docs
	"construction-pos/internal/config"
	"construction-pos/internal/database"
	"construction-pos/internal/events"
	"construction-pos/internal/handler"
	"construction-pos/internal/logger"
	"construction-pos/internal/middleware"
	"construction-pos/internal/repository"
	"construction-pos/internal/service"
	"construction-pos/internal/telemetry"
	"construction-pos/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// @title           Construction Materials POS API
// @version         1.0
// @description     Sales, stock movements and reporting for a construction materials shop.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, envLoaded := config.Load()
	log := logger.New(cfg.LogLevel)
	if !envLoaded {
		log.Info("No configs/.env file found, using environment and defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Fatalf("Tracing setup failed: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = uuid.NewString()
		log.Warn("JWT_SECRET is not set; using a random secret, tokens will not survive a restart")
	}

	db, err := database.NewConnection(database.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		Log:          log,
	})
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Connected to database")

	// Set up event fan-out: services publish after commit, the hub relays to browsers
	bus := events.NewBus()
	wsHub := websocket.NewHub(log, cfg.CORSOrigins)
	unsubscribe := wsHub.Relay(bus)
	defer unsubscribe()
	go wsHub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	reportRepo := repository.NewReportRepository(db)

	settingsService := service.NewSettingsService(settingRepo)
	userService := service.NewUserService(userRepo, cfg.JWTSecret, log)
	numberingService := service.NewNumberingService(saleRepo, log)
	stockService := service.NewStockService(productRepo, movementRepo, txManager, bus, log)
	saleService := service.NewSaleService(productRepo, saleRepo, movementRepo, customerRepo, txManager, numberingService, settingsService, bus, log)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, stockService, txManager, log)
	customerService := service.NewCustomerService(customerRepo, cfg.PhoneRegion, log)
	ledgerService := service.NewLedgerService(productRepo, movementRepo)
	reportService := service.NewReportService(reportRepo, productRepo, nil, log)

	if err := settingsService.Seed(ctx); err != nil {
		log.Fatalf("Seeding settings failed: %v", err)
	}
	if err := userService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("Seeding admin user failed: %v", err)
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(userService, cfg.IsProduction())
	catalogHandler := handler.NewCatalogHandler(catalogService)
	customerHandler := handler.NewCustomerHandler(customerService)
	saleHandler := handler.NewSaleHandler(saleService)
	stockHandler := handler.NewStockHandler(stockService, ledgerService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	reportHandler := handler.NewReportHandler(reportService)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.AccessLog(log), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, userService)
	})

	// API Routing
	authenticate := middleware.Authenticate(userService)
	api := router.Group("/api")
	authHandler.RegisterRoutes(api, authenticate)

	secured := api.Group("", authenticate)
	catalogHandler.RegisterRoutes(secured)
	customerHandler.RegisterRoutes(secured)
	saleHandler.RegisterRoutes(secured)
	stockHandler.RegisterRoutes(secured)
	settingsHandler.RegisterRoutes(secured)
	reportHandler.RegisterRoutes(secured)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
