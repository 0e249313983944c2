package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wbsdickson/bpsp-portal-sub002/config"
	"github.com/wbsdickson/bpsp-portal-sub002/handlers"
	"github.com/wbsdickson/bpsp-portal-sub002/middleware"
	"github.com/wbsdickson/bpsp-portal-sub002/scheduler"
	"github.com/wbsdickson/bpsp-portal-sub002/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := config.NewLogger(cfg)

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Issuance scheduler
	schedules := store.NewScheduleStore(db)
	driver := scheduler.NewDriver(db, schedules, scheduler.NewMaterializer(),
		log.WithField("component", "scheduler"),
		scheduler.DriverOptions{RetryThreshold: cfg.RetryThreshold})
	if err := driver.Start(cfg.IssuanceCronSpec); err != nil {
		log.Fatalf("Failed to start issuance scheduler: %v", err)
	}
	defer driver.Stop()

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bpsp-portal-api",
		})
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	clientHandler := handlers.NewClientHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db)
	templateHandler := handlers.NewTemplateHandler(db)
	scheduleHandler := handlers.NewScheduleHandler(schedules)
	invoiceHandler := handlers.NewInvoiceHandler(db, driver, log.WithField("component", "handlers"))

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		authed := api.Group("", middleware.JwtAuthMiddleware(cfg))
		{
			authed.POST("/clients", clientHandler.Create)
			authed.GET("/clients", clientHandler.List)
			authed.GET("/clients/:id", clientHandler.Get)
			authed.PUT("/clients/:id", clientHandler.Update)
			authed.DELETE("/clients/:id", clientHandler.Delete)

			authed.POST("/items", catalogHandler.CreateItem)
			authed.GET("/items", catalogHandler.ListItems)
			authed.PUT("/items/:id", catalogHandler.UpdateItem)
			authed.DELETE("/items/:id", catalogHandler.DeleteItem)
			authed.POST("/tax-rates", catalogHandler.CreateTaxRate)
			authed.GET("/tax-rates", catalogHandler.ListTaxRates)

			authed.POST("/templates", templateHandler.Create)
			authed.GET("/templates", templateHandler.List)
			authed.GET("/templates/:id", templateHandler.Get)
			authed.DELETE("/templates/:id", templateHandler.Delete)

			authed.POST("/schedules", scheduleHandler.Create)
			authed.GET("/schedules", scheduleHandler.List)
			authed.GET("/schedules/:id", scheduleHandler.Get)
			authed.PUT("/schedules/:id", scheduleHandler.Update)
			authed.DELETE("/schedules/:id", scheduleHandler.Delete)
			authed.POST("/schedules/:id/enable", scheduleHandler.Enable)
			authed.POST("/schedules/:id/disable", scheduleHandler.Disable)

			authed.GET("/invoices", invoiceHandler.List)
			authed.GET("/invoices/:id", invoiceHandler.Get)
			authed.POST("/invoices/:id/pay", invoiceHandler.MarkPaid)
			authed.POST("/invoices/:id/void", invoiceHandler.Void)

			admin := authed.Group("/admin", middleware.RequireRole("operator"))
			admin.POST("/scheduler/run", invoiceHandler.RunScheduler)
		}
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Infof("Starting billing portal API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
