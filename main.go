package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"train-live-viewer/config"
	"train-live-viewer/database"
	"train-live-viewer/handlers"
	"train-live-viewer/metrics"
	"train-live-viewer/publisher"
	"train-live-viewer/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Starting Train Live Viewer")
	log.Printf("Store driver: %s, time zone: %s", cfg.DBDriver, cfg.Location)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.RunMigrations(database.GetDB(), cfg.DBDriver); err != nil {
		log.Fatalf("Failed to apply database schema: %v", err)
	}

	collector := metrics.NewCollector(cfg.LivePollInterval)

	// Optional live status fan-out
	var livePublisher services.LivePublisher
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, collector)
		if err != nil {
			log.Printf("NATS unavailable, live status will not be published: %v", err)
		} else {
			defer pub.Close()
			livePublisher = pub
			log.Printf("Publishing live status to %s.<train>", cfg.NATSSubjectPrefix)
		}
	}

	db := database.GetDB()
	stations := services.NewStationService(db)
	formations := services.NewFormationService(db, cfg.HistoryLookback)
	mirror := services.NewMirrorClient(cfg, collector)
	views := services.NewViewRegistry(mirror, stations, formations, services.ViewRegistryOptions{
		PollInterval: cfg.LivePollInterval,
		IdleTTL:      cfg.LiveViewIdle,
		Location:     cfg.Location,
		Publisher:    livePublisher,
		Metrics:      collector,
	})
	defer views.CloseAll()

	h := &handlers.Handler{
		Stations:   stations,
		Schedules:  services.NewTDXClient(cfg, collector),
		Trains:     mirror,
		Formations: formations,
		Views:      views,
		Importer:   services.NewImporter(mirror, stations),
		Location:   cfg.Location,
	}

	// Setup Gin router
	router := setupRouter(cfg, h, collector)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handler, collector *metrics.Collector) *gin.Engine {
	// Set Gin to release mode in production
	if cfg.GinMode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	// API routes
	h.Register(router.Group("/api"))

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}
