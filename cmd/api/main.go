package main

import (
	"fmt"
	"net/http"
	"os"

	"moneta/internal/config"
	"moneta/internal/database"
	"moneta/internal/handlers"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/scheduler"
	"moneta/internal/services"
	"moneta/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Moneta API
// @version         1.0
// @description     Moneta is a personal finance backend: transactions, monthly budgets with a consistent spending ledger, recurring transaction templates, and shareable savings goals.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	loc := appConfig.RecurringLocation()

	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	ledger := services.NewBudgetLedger(db, loc)
	transactionService := services.NewTransactionService(db, ledger)
	budgetService := services.NewBudgetService(db, ledger)
	shareService := services.NewGoalShareService(db)
	goalService := services.NewGoalService(db, shareService)
	recurringService := services.NewRecurringService(db, ledger, loc)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	goalHandler := handlers.NewGoalHandler(goalService, auditService)
	shareHandler := handlers.NewGoalShareHandler(shareService, auditService)
	recurringHandler := handlers.NewRecurringHandler(recurringService)

	// Start the daily recurring engine
	sched := scheduler.New(recurringService, loc)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// Register custom binding validators
	validator.Register()

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Operational routes, guarded by API key instead of user auth
	ops := v1.Group("/ops")
	ops.Use(middleware.OpsAuthMiddleware(appConfig.OpsAPIKey))
	ops.POST("/recurring/run", recurringHandler.Run)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.Create)
	categories.GET("", categoryHandler.List)
	categories.GET("/:id", categoryHandler.Get)
	categories.PUT("/:id", categoryHandler.Update)
	categories.DELETE("/:id", categoryHandler.Delete)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.Create)
	transactions.GET("", transactionHandler.List)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.Create)
	budgets.GET("", budgetHandler.List)
	budgets.GET("/:id", budgetHandler.Get)
	budgets.PUT("/:id", budgetHandler.Update)
	budgets.DELETE("/:id", budgetHandler.Delete)
	budgets.POST("/:id/recompute", budgetHandler.Recompute)
	budgets.GET("/:id/progress", budgetHandler.Progress)

	// Goal routes
	goals := protected.Group("/goals")
	goals.POST("", goalHandler.Create)
	goals.GET("", goalHandler.List)
	goals.GET("/shared", goalHandler.ListShared)
	goals.GET("/:id", goalHandler.Get)
	goals.PUT("/:id", goalHandler.Update)
	goals.DELETE("/:id", goalHandler.Delete)
	goals.POST("/:id/amount", goalHandler.AddAmount)
	goals.POST("/:id/shares", shareHandler.Invite)
	goals.GET("/:id/shares", shareHandler.ListForGoal)

	// Share routes
	shares := protected.Group("/shares")
	shares.GET("/pending", shareHandler.ListPending)
	shares.POST("/:id/respond", shareHandler.Respond)
	shares.PUT("/:id/role", shareHandler.UpdateRole)
	shares.DELETE("/:id", shareHandler.Remove)

	log.Infof("Starting Moneta backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
