package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/akozyrev/transcript-analyzer/pkg/validator"

	"github.com/akozyrev/transcript-analyzer/internal/adapter/handler"
	"github.com/akozyrev/transcript-analyzer/internal/adapter/repository"
	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/cache"
	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/database"
	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/storage"
	"github.com/akozyrev/transcript-analyzer/internal/usecase/opinion"
	"github.com/akozyrev/transcript-analyzer/internal/usecase/segment"
	pkgai "github.com/akozyrev/transcript-analyzer/pkg/ai"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
	"github.com/akozyrev/transcript-analyzer/pkg/transcribe"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate in CI/CD.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Applying migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize export cache. Redis is optional; the in-memory store is
	// the default.
	var cacheStore cache.Store
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisStore, err := cache.NewRedisStore(cfg, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		cacheStore = redisStore
	} else {
		log.Println("📦 Redis disabled, using in-memory export cache")
		cacheStore = cache.NewMemoryStore()
	}

	// Initialize export artifact store
	var exportStore storage.ExportStore
	switch cfg.Storage.Type {
	case "minio":
		log.Println("🪣 Initializing MinIO export store...")
		exportStore, err = storage.NewMinIOStore(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}
	default:
		log.Printf("📁 Writing exports to %s", cfg.Storage.ExportsDir)
		exportStore, err = storage.NewFilesystemStore(cfg.Storage.ExportsDir)
		if err != nil {
			log.Fatalf("Failed to initialize exports directory: %v", err)
		}
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	segmentRepo := repository.NewSegmentRepository(db)
	exportRepo := repository.NewExportRepository(db)
	opinionRepo := repository.NewOpinionRepository(db)

	// Initialize oracle and transcription clients
	log.Println("🤖 Initializing oracle client...")
	oracle := pkgai.NewOpenAIClient(&cfg.OpenAI, logger)
	transcriber := transcribe.NewAssemblyAITranscriber(&cfg.Assembly, logger)
	if transcriber.Enabled() {
		log.Println("🎙️  Audio ingestion enabled (AssemblyAI)")
	} else {
		log.Println("🎙️  Audio ingestion disabled (no ASSEMBLYAI_API_KEY)")
	}

	// Initialize services
	log.Println("✨ Initializing services...")
	segmentService := segment.NewService(oracle, segmentRepo, exportRepo, exportStore, cacheStore, &cfg.OpenAI, logger)
	opinionService := opinion.NewService(oracle, opinionRepo, &cfg.OpenAI, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	segmentHandler := handler.NewSegmentHandler(segmentService, transcriber, logger)
	opinionHandler := handler.NewOpinionHandler(opinionService, logger)

	router := handler.NewRouter(cfg, segmentHandler, opinionHandler)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
