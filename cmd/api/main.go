package main

import (
	"fmt"

	"serviceease/internal/config"
	"serviceease/internal/database"
	"serviceease/internal/handler"
	"serviceease/internal/middleware"
	"serviceease/internal/repository"
	"serviceease/internal/service"
	"serviceease/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           ServiceEase API
// @version         1.0
// @description     Printer maintenance field service: work orders, completion approvals and technician consumable inventory.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("configuration failed: %v", err)
	}

	middleware.SetJWTSecret(cfg.JWT.Secret)

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	log.Info("connected to PostgreSQL")

	// WebSocket hub for live notification delivery
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repository -> Service -> Handler wiring
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	workOrderRepo := repository.NewWorkOrderRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var mailer service.Mailer
	if cfg.SMTP.Enabled {
		mailer = service.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		log.Warn("SMTP not configured, notification email disabled")
	}

	userService := service.NewUserService(userRepo, []byte(cfg.JWT.Secret))
	inventoryService := service.NewInventoryService(inventoryRepo)
	workOrderService := service.NewWorkOrderService(workOrderRepo, historyRepo, txManager)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, mailer, wsHub)
	approvalService := service.NewApprovalService(
		approvalRepo, workOrderRepo, usageRepo, userRepo,
		inventoryService, historyRepo, notificationService, txManager,
	)

	userHandler := handler.NewUserHandler(userService)
	workOrderHandler := handler.NewWorkOrderHandler(workOrderService, approvalService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	workOrderHandler.RegisterRoutes(api)
	approvalHandler.RegisterRoutes(api)
	inventoryHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)

	addr := fmt.Sprintf("%s:%d", cfg.ServiceHost, cfg.ServicePort)
	log.Infof("server listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
