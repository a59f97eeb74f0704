package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisv9 "github.com/redis/go-redis/v9"

	"farm2go/internal/config"
	"farm2go/internal/database"
	"farm2go/internal/handler"
	"farm2go/internal/middleware"
	"farm2go/internal/model"
	"farm2go/internal/monitor"
	"farm2go/internal/redis"
	"farm2go/internal/repository"
	"farm2go/internal/service/admin"
	"farm2go/internal/service/auth"
	"farm2go/internal/service/delivery"
	"farm2go/internal/service/notify"
	"farm2go/internal/service/order"
	"farm2go/internal/service/payment"
	"farm2go/internal/service/product"
	iutils "farm2go/internal/utils"
	"farm2go/pkg/breaker"
	"farm2go/pkg/log"
	"farm2go/pkg/maintenance"
	"farm2go/pkg/purchasecode"
	"farm2go/pkg/push"
	"farm2go/pkg/snowflake"
	"farm2go/pkg/utils"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load config")
	}
	config.GlobalConfig = cfg

	logConfig := log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
	log.Init(logConfig)

	// database
	if err := database.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.AutoMigrate(db); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to migrate database")
	}
	if err := database.CreateIndexes(db); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Failed to create indexes")
	}

	// redis: the v8 client backs the unread badge cache and the rate
	// limit scripts, the v9 client backs locks, sessions and pub/sub
	if err := redis.Init(cfg); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if err := redis.InitLuaScripts(redis.Client); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to load redis scripts")
	}

	redisV9Client := redisv9.NewClient(&redisv9.Options{
		Addr:         cfg.Redis.GetAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisV9Client.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	metrics := monitor.NewMetricsCollector()

	tracer, err := monitor.NewTracer(&monitor.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Server.Mode,
		JaegerEndpoint: cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to initialize tracer")
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go metrics.StartSystemMetricsCollection(rootCtx)

	router, err := setupRouter(cfg, redisV9Client, metrics)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Failed to build router")
	}

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{
				"error": err.Error(),
			}).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Fatal("Server forced to shutdown")
	}

	if err := tracer.Shutdown(ctx); err != nil {
		log.WithFields(map[string]interface{}{
			"error": err.Error(),
		}).Warn("Tracer shutdown failed")
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, redisV9Client *redisv9.Client, metrics *monitor.MetricsCollector) (*gin.Engine, error) {
	utils.RegisterCustomValidators()

	router := gin.New()

	requestIDs, err := snowflake.NewIDGenerator(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create request id generator: %w", err)
	}

	router.Use(middleware.RequestID(requestIDs))
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.Security))
	router.Use(middleware.Metrics(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Global.RPS, cfg.RateLimit.Global.Burst))
	}

	router.GET("/health", healthCheck)
	router.GET("/ping", ping)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	db := database.GetDB()

	// repositories
	profileRepo := repository.NewProfileRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// notification fan-out and delivery
	broker := push.NewBroker(cfg.Delivery.PushBuffer)
	breakers := breaker.NewManager(breaker.Config{
		MaxRequests:      cfg.Notify.Breaker.MaxRequests,
		Interval:         cfg.Notify.Breaker.Interval,
		Timeout:          cfg.Notify.Breaker.Timeout,
		FailureThreshold: cfg.Notify.Breaker.FailureThreshold,
	})

	notifier, err := notify.NewNotifyService(
		cfg.Notify,
		notificationRepo,
		profileRepo,
		breakers,
		notify.NewRedisPublisher(redisV9Client),
		notify.NewBrokerPublisher(broker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify service: %w", err)
	}

	inbox := notify.NewInboxService(notificationRepo)
	deliverySvc := delivery.NewDeliveryService(cfg.Delivery, cfg.Notify.TopicPrefix, redisV9Client, broker, notificationRepo)

	// domain services
	jwtManager := iutils.NewJWTManager(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.Issuer,
		cfg.Security.JWT.Expire,
		cfg.Security.JWT.RefreshTTL,
	)
	authService := auth.NewAuthService(profileRepo, jwtManager, redisV9Client)

	maintenanceMgr := maintenance.NewManager(redisV9Client)

	codes := purchasecode.NewGenerator(cfg.Orders.CodeCapacity)
	orderService := order.NewOrderService(cfg.Orders, orderRepo, productRepo, transactionRepo, notifier, codes, redisV9Client)
	paymentService := payment.NewPaymentService(orderRepo, transactionRepo, orderService, notifier)
	productService := product.NewProductService(productRepo, notifier)
	adminService := admin.NewAdminService(profileRepo, productRepo, notifier)

	// handlers
	authHandler := handler.NewAuthHandler(authService)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	productHandler := handler.NewProductHandler(productService)
	adminHandler := handler.NewAdminHandler(adminService, maintenanceMgr)
	notificationHandler := handler.NewNotificationHandler(inbox, deliverySvc)

	validate := middleware.TokenValidator(authService.ValidateToken)

	api := router.Group("/api")
	v1 := api.Group("/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/ping", ping)

		// public
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.RefreshToken)
		}
		v1.GET("/products", productHandler.ListProducts)
		v1.GET("/products/:id", productHandler.GetProduct)

		// any authenticated profile
		protected := v1.Group("", middleware.Auth(validate))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			orders := protected.Group("/orders", middleware.Timeout(10*time.Second), middleware.Maintenance(maintenanceMgr))
			{
				orders.POST("", middleware.CheckoutRateLimit(cfg.RateLimit.Checkout.Limit, cfg.RateLimit.Checkout.Window), orderHandler.PlaceOrder)
				orders.GET("", orderHandler.ListBuyerOrders)
				orders.GET("/code/:code", orderHandler.GetOrderByCode)
				orders.GET("/:id", orderHandler.GetOrder)
				orders.GET("/:id/qr", orderHandler.GetQRPayload)
				orders.PATCH("/:id/status", orderHandler.AdvanceStatus)
				orders.POST("/:id/cancel", orderHandler.CancelOrder)
				orders.POST("/:id/cancellation", orderHandler.RequestCancellation)
				orders.POST("/:id/cancellation/resolve", orderHandler.ResolveCancellation)

				orders.GET("/:id/payment", paymentHandler.GetByOrder)
				orders.POST("/:id/payment", paymentHandler.RecordPayment)
				orders.POST("/:id/payment/failure", paymentHandler.MarkFailed)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.GET("/unread-count", notificationHandler.UnreadCount)
				notifications.GET("/stream", notificationHandler.Stream)
				notifications.POST("/:id/read", notificationHandler.MarkRead)
				notifications.POST("/read-all", notificationHandler.MarkAllRead)
			}
		}

		// farmer only
		farmer := v1.Group("/farmer", middleware.RequireRoles(validate, model.RoleFarmer), middleware.Timeout(10*time.Second), middleware.Maintenance(maintenanceMgr))
		{
			farmer.GET("/orders", orderHandler.ListFarmerOrders)
			farmer.GET("/products", productHandler.ListMyProducts)
			farmer.GET("/products/low-stock", productHandler.ListLowStock)
			farmer.POST("/products", productHandler.CreateProduct)
			farmer.PATCH("/products/:id", productHandler.UpdateProduct)
			farmer.DELETE("/products/:id", productHandler.DeleteProduct)
			farmer.POST("/products/:id/restock", productHandler.Restock)
		}

		// barangay admins and the super admin
		adminGroup := v1.Group("/admin", middleware.RequireRoles(validate, model.RoleAdmin, model.RoleSuperAdmin))
		{
			adminGroup.GET("/users", adminHandler.ListProfiles)
			adminGroup.PATCH("/users/:id/moderation", adminHandler.ModerateUser)
			adminGroup.DELETE("/users/:id", adminHandler.RemoveUser)
			adminGroup.GET("/products/pending", adminHandler.ListPendingProducts)
			adminGroup.PATCH("/products/:id/moderation", adminHandler.ModerateProduct)
			adminGroup.POST("/announcements", adminHandler.Announce)
			adminGroup.GET("/transactions", paymentHandler.ListByStatus)
			adminGroup.GET("/maintenance", adminHandler.GetMaintenance)
			adminGroup.PUT("/maintenance", adminHandler.SetMaintenance)
		}

		// super admin only
		superAdmin := v1.Group("/admin", middleware.RequireRoles(validate, model.RoleSuperAdmin))
		{
			superAdmin.POST("/admins", adminHandler.ProvisionAdmin)
		}
	}

	return router, nil
}

func healthCheck(c *gin.Context) {
	dbHealth := checkDatabase()
	redisHealth := checkRedis()

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
		"services": map[string]interface{}{
			"database": dbHealth,
			"redis":    redisHealth,
		},
	}

	if !dbHealth["healthy"].(bool) || !redisHealth["healthy"].(bool) {
		health["status"] = "error"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}

func checkDatabase() map[string]interface{} {
	db := database.GetDB()
	if db == nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   "database connection is nil",
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
		"status":  "connected",
	}
}

func checkRedis() map[string]interface{} {
	client := redis.GetClient()
	if client == nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   "redis client is nil",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		}
	}

	return map[string]interface{}{
		"healthy": true,
		"status":  "connected",
	}
}
