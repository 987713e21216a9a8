package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/homedog/backend/config"
	"github.com/homedog/backend/database"
	"github.com/homedog/backend/handlers"
	"github.com/homedog/backend/natsserver"
	"github.com/homedog/backend/services"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
	defer database.Close()

	// Start embedded NATS server for the live upload feed. The bus is an
	// enhancement: the fleet API keeps working without it.
	var publisher handlers.Publisher
	natsServer, err := natsserver.New(natsserver.Config{Port: cfg.NATSPort})
	if err != nil {
		log.Printf("⚠️ Failed to start NATS server, continuing without live feeds: %v", err)
	} else {
		defer natsServer.Shutdown()
		publisher = natsServer

		feedHub := services.NewFeedHub(natsServer.Conn())
		go feedHub.Run()
		handlers.SetFeedHub(feedHub)
		log.Println("📺 Feed hub initialized")
	}

	store := services.NewImageStore(cfg.UploadDir)
	handlers.Init(cfg, store, services.NewOllamaAnalyzer(), publisher)

	// Setup Gin router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Device-ID", "X-File-Name"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Admin dashboard and stored images
	if cfg.ServeFrontend {
		router.Static("/admin", cfg.FrontendDir)
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "/admin/")
		})
	}
	router.Static("/uploads", cfg.UploadDir)

	// WebSocket route for the live upload feed (outside /api group)
	router.GET("/ws/events", handlers.HandleFeedWebSocket)

	// Image ingest (device-token auth, separate from the fleet token)
	router.POST("/upload", handlers.PostUpload)

	// API Routes
	api := router.Group("/api")
	{
		// Device-facing fleet routes
		api.POST("/register", handlers.RegisterDevice)
		api.GET("/config", handlers.GetDeviceConfig)

		// Feed hub stats
		api.GET("/feeds/stats", handlers.GetFeedHubStats)

		// Admin routes for device management
		admin := api.Group("/admin")
		{
			admin.GET("/devices", handlers.GetDevices)
			admin.GET("/device/:id", handlers.GetDevice)
			admin.POST("/device/:id/config", handlers.UpdateDeviceConfig)
		}
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("🚀 Server running on http://localhost:%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
