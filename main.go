package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-svc/cache"
	"shop-svc/config"
	"shop-svc/database"
	"shop-svc/gateway"
	"shop-svc/handlers"
	"shop-svc/kafka"
	"shop-svc/middleware"
	"shop-svc/store"
	"shop-svc/worker"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := cache.InitRedis(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("shop-svc")
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	// The gateway client is built once here and injected everywhere provider
	// access is needed.
	mollieClient := gateway.NewMollieClient(cfg.MollieAPIURL, cfg.MollieAPIKey)

	itemStore := store.NewItemStore(db)
	orderStore := store.NewOrderStore(db)
	paymentStore := store.NewPaymentStore(db)

	// Start reconciliation worker in background
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	reconciler := worker.NewReconciliationWorker(paymentStore, mollieClient, 5*time.Minute, time.Hour, logger)
	go reconciler.Run(workerCtx)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("shop-svc"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	// Provider webhook, unauthenticated by design
	webhookHandler := handlers.NewWebhookHandler(paymentStore, mollieClient, producer, cfg, logger)
	router.POST("/payments/webhook", webhookHandler.UpdatePayment)

	// Authenticated API
	purchaseHandler := handlers.NewPurchaseHandler(itemStore, orderStore, paymentStore, mollieClient, producer, cfg, logger)
	itemHandler := handlers.NewItemHandler(itemStore, redisClient, logger)
	orderHandler := handlers.NewOrderHandler(orderStore, paymentStore, logger)

	authed := router.Group("/", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	authed.POST("/purchase", purchaseHandler.Purchase)
	authed.GET("/items", itemHandler.List)
	authed.GET("/items/:id", itemHandler.Get)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id/details", orderHandler.ListDetails)

	// Start REST server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Shop service started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
