package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/database"
	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/generation"
	"github.com/scopeline/scopeline/internal/handlers"
	"github.com/scopeline/scopeline/internal/middleware"
	"github.com/scopeline/scopeline/internal/pacing"
	"github.com/scopeline/scopeline/internal/services"
	"github.com/scopeline/scopeline/internal/vocabulary"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Scopeline estimate processor...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	// Hash the admin password
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/auth/login",
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	// Load the category dictionary
	vocab := vocabulary.Default()
	if cfg.VocabularyPath != "" {
		vocab, err = vocabulary.LoadFile(cfg.VocabularyPath)
		if err != nil {
			log.Fatalf("Failed to load vocabulary from %s: %v", cfg.VocabularyPath, err)
		}
		log.Printf("Loaded vocabulary v%d from %s (%d categories)", vocab.Version(), cfg.VocabularyPath, vocab.CategoryCount())
	} else {
		log.Printf("Using embedded vocabulary v%d (%d categories)", vocab.Version(), vocab.CategoryCount())
	}

	ids := estimate.UUIDGenerator{}

	// Initialize services
	pipelineService := services.NewPipelineService(database.DB, vocab, ids)
	runService := services.NewRunService(database.DB)

	// Initialize the scope extractor when a generation API key is configured
	var extractor *generation.ScopeExtractor
	if cfg.OpenAIAPIKey != "" {
		scheduler := pacing.New(cfg.GenerationPacing)
		extractor = generation.NewScopeExtractor(generation.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}, scheduler, ids)
		log.Printf("Scope extractor initialized with model %s", cfg.OpenAIModel)
	} else {
		log.Printf("OPENAI_API_KEY not set; scope extraction endpoint disabled")
	}

	// Initialize WebSocket events hub
	eventsHub := handlers.NewEventsHub()

	// Initialize handlers
	httpHandler := handlers.NewHTTPHandler()
	apiHandler := handlers.NewAPIHandler(database.DB, pipelineService, runService, extractor, eventsHub, ids)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)
	eventsHub.SetupRoutes(mux)

	// Wrap all routes with request ID, then CORS, then JWT authentication
	corsMiddleware := middleware.NewCORSMiddleware() // Allow all origins
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Scopeline is running! Press Ctrl+C to exit.")
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	log.Println("Shutdown complete")
}
