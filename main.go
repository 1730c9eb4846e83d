package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/printvend/printvend-api/config"
	"github.com/printvend/printvend-api/controllers"
	"github.com/printvend/printvend-api/models"
	"github.com/printvend/printvend-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting PrintVend API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(&models.Printer{}, &models.PrintJob{}, &models.PrintJobLog{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Object storage for model file references
	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitS3Service(); err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
	} else {
		log.Println("AWS_S3_BUCKET not set, file references will not be presigned")
	}

	// Notification bus for lifecycle events
	if cfg.SNSTopicARN != "" {
		if _, err := services.InitNotifier(); err != nil {
			log.Fatalf("Failed to initialize SNS notifier: %v", err)
		}
	} else {
		log.Println("SNS_TOPIC_ARN not set, lifecycle notifications disabled")
	}

	// Edge-device MQTT channel
	if cfg.MQTTBrokerURL != "" {
		gateway, err := services.StartDeviceGateway(cfg)
		if err != nil {
			log.Fatalf("Failed to start device gateway: %v", err)
		}
		defer gateway.Stop()
	} else {
		log.Println("MQTT_BROKER_URL not set, device gateway disabled")
	}

	// Initialize Gin router
	router := gin.Default()
	router.Use(cors.Default())
	registerRoutes(router)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// registerRoutes wires the API v1 routes
func registerRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Print job lifecycle
		v1.POST("/printjobs", controllers.CreatePrintJob)
		v1.GET("/printjobs", controllers.ListPrintJobs)
		v1.GET("/printjobs/:id", controllers.GetPrintJob)
		v1.PUT("/printjobs/:id/status", controllers.UpdatePrintJobStatus)
		v1.DELETE("/printjobs/:id", controllers.DeletePrintJob)

		// Printer fleet
		v1.PUT("/printers/:id/heartbeat", controllers.HeartbeatPrinter)
		v1.GET("/printers", controllers.ListPrinters)
		v1.GET("/printers/:id", controllers.GetPrinter)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "PrintVend API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
