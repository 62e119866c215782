package main

import (
	"time"

	"purchase-order-service/internal/handler"
	"purchase-order-service/internal/middleware"
	"purchase-order-service/internal/store"
	"purchase-order-service/pkg/config"
	"purchase-order-service/pkg/database"
	"purchase-order-service/pkg/jwtutil"
	"purchase-order-service/pkg/logger"
	"purchase-order-service/pkg/metrics"
	"purchase-order-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting purchase order service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize HTTP metrics
	httpMetrics := metrics.NewHTTPMetrics("purchase-order-service")
	log.Info("HTTP metrics initialized")

	// Initialize database and run migrations
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host),
		zap.String("db_name", cfg.DB.DBName))

	h := handler.New(store.NewGormStore(database.GetDB()))

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(httpMetrics.Middleware())

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Log request details
			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Float64("duration_s", time.Since(start).Seconds()),
				zap.String("ip", c.RealIP()),
			)

			return err
		}
	})

	// Routes
	// Public routes that don't require authentication
	e.GET("/", handler.Health)
	e.GET("/health", handler.Health)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Vendor endpoints
	api.GET("/vendors", h.ListVendors)
	api.POST("/vendors", h.CreateVendor)
	api.GET("/vendors/:vendorId", h.GetVendor)
	api.PUT("/vendors/:vendorId", h.UpdateVendor)
	api.DELETE("/vendors/:vendorId", h.DeleteVendor)

	// Purchase order endpoints
	api.GET("/purchase-orders", h.ListPurchaseOrders)
	api.POST("/purchase-orders", h.CreatePurchaseOrder)
	api.POST("/purchase-orders/split", h.SplitPurchaseOrder)
	api.GET("/purchase-orders/:purchaseOrderId", h.GetPurchaseOrder)
	api.PUT("/purchase-orders/:purchaseOrderId", h.UpdatePurchaseOrder)
	api.DELETE("/purchase-orders/:purchaseOrderId", h.DeletePurchaseOrder)
	api.GET("/purchase-orders/:purchaseOrderId/fulfillments", h.ListFulfillments)

	// Fulfillment endpoints
	api.POST("/fulfillments", h.CreateFulfillment)
	api.GET("/fulfillments/:fulfillmentId", h.GetFulfillment)
	api.DELETE("/fulfillments/:fulfillmentId", h.DeleteFulfillment)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
