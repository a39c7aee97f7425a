package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/eckgrid/internal/ai"
	"github.com/xelth-com/eckgrid/internal/config"
	"github.com/xelth-com/eckgrid/internal/database"
	"github.com/xelth-com/eckgrid/internal/handlers"
	"github.com/xelth-com/eckgrid/internal/models"
	"github.com/xelth-com/eckgrid/internal/recommend"
	"github.com/xelth-com/eckgrid/internal/services/layout"
	"github.com/xelth-com/eckgrid/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Bin-size recommendations
	var recommender recommend.Recommender = recommend.None{}
	var gemini *ai.GeminiClient
	if cfg.AI.Enabled() {
		gemini, err = ai.NewGeminiClient(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel)
		if err != nil {
			log.Printf("⚠️ AI: Gemini unavailable, bins default to 1x1: %v", err)
		} else {
			recommender = recommend.NewCached(db, recommend.NewAIRecommender(gemini, gemini.Name(), cfg.AI.RecommendTimeout))
			log.Printf("✅ AI: Bin-size recommendations via %s", gemini.Name())
		}
	} else {
		log.Println("ℹ️ AI: GEMINI_API_KEY not set, bins default to 1x1")
	}

	// 5. Layout service and live refresh hub
	hub := websocket.NewHub()
	go hub.Run()

	layouts := layout.NewService(db, recommender)
	layouts.SetNotifier(hub)

	// 6. Set up HTTP router
	router := handlers.NewRouter(db, cfg, layouts, hub)

	// 7. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	hub.Stop()
	if gemini != nil {
		gemini.Close()
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
