package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dinetrack/internal/config"
	"dinetrack/internal/database"
	"dinetrack/internal/handlers"
	"dinetrack/internal/migrations"
	"dinetrack/internal/redis"
	"dinetrack/internal/repository"
	"dinetrack/internal/services"
	"dinetrack/pkg/menu"
	"dinetrack/pkg/orders"
	"dinetrack/pkg/resilient"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	// Initialize downstream service clients
	orderClient := orders.NewClient(newResilientClient("orders", cfg.OrderServiceURL, cfg))
	menuClient := menu.NewClient(newResilientClient("menu", cfg.MenuServiceURL, cfg))

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	billRepo := repository.NewBillRepository(db)
	tableRepo := repository.NewTableRepository(db)

	// Initialize services
	orderService := services.NewOrderService(orderRepo, tableRepo, redisClient)
	billService := services.NewBillService(billRepo, tableRepo, orderClient, menuClient, redisClient, cfg.PriceCacheTTL)
	tableService := services.NewTableService(tableRepo, orderRepo, billRepo, redisClient, cfg.ProjectionCacheTTL)
	syncService := services.NewSyncService(billRepo, billService, cfg.SyncInterval)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(orderService)
	billHandler := handlers.NewBillHandler(billService)
	tableHandler := handlers.NewTableHandler(tableService)

	// Setup routes
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	ordersGroup := router.Group("/orders")
	{
		ordersGroup.GET("", orderHandler.ListOrders)
		ordersGroup.POST("", orderHandler.CreateOrder)
		ordersGroup.GET("/:id", orderHandler.GetOrder)
		ordersGroup.PUT("/:id/status", orderHandler.SetOrderStatus)
		ordersGroup.PUT("/:id/items/:itemId", orderHandler.SetItemStatus)
		ordersGroup.POST("/:id/cancel", orderHandler.CancelOrder)
		ordersGroup.POST("/:id/pause", orderHandler.PauseOrder)
		ordersGroup.POST("/:id/resume", orderHandler.ResumeOrder)
	}

	billsGroup := router.Group("/bills")
	{
		billsGroup.GET("", billHandler.ListBills)
		billsGroup.POST("", billHandler.CreateBill)
		billsGroup.GET("/:id", billHandler.GetBill)
		billsGroup.POST("/:id/refresh", billHandler.RefreshBill)
		billsGroup.GET("/:id/verify", billHandler.VerifyBill)
		billsGroup.PUT("/:id/status", billHandler.SetBillStatus)
		billsGroup.PUT("/:id/payment-status", billHandler.SetPaymentStatus)
	}

	tablesGroup := router.Group("/tables")
	{
		tablesGroup.GET("", tableHandler.ListTables)
		tablesGroup.POST("", tableHandler.CreateTable)
		tablesGroup.GET("/:id", tableHandler.GetTable)
		tablesGroup.PUT("/:id/status", tableHandler.SetTableStatus)
	}

	// Start background bill synchronization
	syncService.Start(context.Background())
	defer syncService.Stop()

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
}

func newResilientClient(service, baseURL string, cfg *config.Config) *resilient.Client {
	rc := resilient.NewClient(service, baseURL)
	rc.Timeout = cfg.HTTPTimeout
	rc.MaxRetries = cfg.HTTPMaxRetries
	rc.RetryDelay = cfg.HTTPRetryDelay
	return rc
}
