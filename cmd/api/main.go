package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/comparecv/internal/config"
	"alfredoptarigan/comparecv/internal/handlers"
	"alfredoptarigan/comparecv/internal/middleware"
	"alfredoptarigan/comparecv/internal/repositories"
	"alfredoptarigan/comparecv/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize Gemini AI
	geminiService, err := services.NewGeminiService(
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Gemini.EmbedModel,
		cfg.Gemini.Temperature,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini AI: %v", err)
	}
	log.Println("✅ Gemini AI initialized successfully")

	analysisClient, err := services.NewAnalysisClient(geminiService, cfg.Gemini.Timeout)
	if err != nil {
		log.Fatalf("❌ Failed to initialize analysis client: %v", err)
	}

	ingestionService := services.NewIngestionService(
		cfg.Analysis.MaxFiles,
		cfg.Analysis.MaxFileSize,
		cfg.Analysis.AllowTextFallback,
	)
	conformanceChecker := services.NewConformanceChecker(services.NewPDFParserService())
	log.Println("✅ Services initialized successfully")

	// History is optional; analyses still work without a database.
	var historyService services.HistoryService
	if cfg.History.Enabled {
		historyService = initHistory(cfg, geminiService)
	}

	sessionStore := services.NewSessionStore(
		ingestionService,
		analysisClient,
		conformanceChecker,
		historyService,
		cfg.Analysis.MinJobDescriptionLength,
		cfg.Analysis.SessionTTL,
	)
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	sessionStore.StartJanitor(janitorCtx, cfg.Analysis.SessionSweepInterval)

	// Initialize Handlers
	router := &handlers.Router{
		Auth:    middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.Required),
		Session: handlers.NewSessionHandler(sessionStore),
		Analyze: handlers.NewAnalyzeHandler(sessionStore),
	}
	if historyService != nil {
		router.History = handlers.NewHistoryHandler(historyService, cfg.Auth.Required)
	}
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CompareCV API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 30*time.Second,
		BodyLimit:    cfg.RequestBodyLimit(),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	router.Register(app)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "CompareCV API",
			"version":   "1.0.0",
			"endpoints": router.Endpoints(),
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
		close(stopped)
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	// Listen returns as soon as Shutdown starts.
	<-stopped
	stopJanitor()
	if historyService != nil {
		log.Println("⏳ Waiting for pending history saves...")
		historyService.Wait()
	}
	log.Println("✅ Server stopped")
}

func initHistory(cfg *config.Config, geminiService services.GeminiService) services.HistoryService {
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Printf("⚠️  History disabled: %v", err)
		return nil
	}
	historyRepo := repositories.NewHistoryRepository(db)

	var index services.HistoryIndex
	if cfg.Qdrant.URL != "" {
		qdrantService, err := services.NewQdrantService(
			cfg.Qdrant.URL,
			cfg.Qdrant.APIKey,
			cfg.Qdrant.Collection,
		)
		if err != nil {
			log.Printf("⚠️  Similar-analysis search disabled: %v", err)
		} else if err := qdrantService.InitCollection(context.Background()); err != nil {
			log.Printf("⚠️  Similar-analysis search disabled: %v", err)
		} else {
			index = qdrantService
			log.Println("✅ Qdrant initialized successfully")
		}
	}

	log.Println("✅ History initialized successfully")
	return services.NewHistoryService(historyRepo, index, geminiService)
}
