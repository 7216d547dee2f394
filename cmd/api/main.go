package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	_ "github.com/safetyspeak/backend/docs"
	"github.com/safetyspeak/backend/internal/auth"
	"github.com/safetyspeak/backend/internal/config"
	"github.com/safetyspeak/backend/internal/curriculum"
	"github.com/safetyspeak/backend/internal/generator"
	"github.com/safetyspeak/backend/internal/handlers"
	"github.com/safetyspeak/backend/internal/logger"
	"github.com/safetyspeak/backend/internal/middleware"
	"github.com/safetyspeak/backend/internal/repositories"
	"github.com/safetyspeak/backend/internal/services"
	"github.com/safetyspeak/backend/internal/tasks"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// lessonRequestsPerMinute bounds lesson requests per user, since a miss may call the generator
const lessonRequestsPerMinute = 20

// @title SafetySpeak API
// @version 1.0
// @description API for workplace safety English lessons and learner progress

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for admin endpoints
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting SafetySpeak API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Test Redis connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Load curriculum
	catalog, err := curriculum.Load(cfg.Lessons.CurriculumFile)
	if err != nil {
		logger.Logger.Fatal("Failed to load curriculum", zap.Error(err))
	}

	if cfg.Generation.APIKey == "" {
		logger.Logger.Warn("GEMINI_API_KEY is not set, lessons will be served from the local curriculum")
	}
	if cfg.APIKey == "" {
		logger.Logger.Warn("ADMIN_API_KEY is not set, admin endpoints are disabled")
	}

	// Initialize repositories
	documentRepo := repositories.NewDocumentRepository(db, logger.Logger)
	userRepo := repositories.NewUserRepository(documentRepo)
	lessonRepo := repositories.NewLessonRepository(documentRepo)
	lessonCache := repositories.NewLessonCacheRepository(rdb, cfg.Lessons.CacheTTL)

	// Initialize generator and task enqueuer
	gemini := generator.NewGeminiClient(generator.Config{
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		BaseURL: cfg.Generation.BaseURL,
		Timeout: cfg.Generation.Timeout,
	}, logger.Logger)
	enqueuer := tasks.NewEnqueuer(asynqClient, logger.Logger)

	// Initialize services
	progressService := services.NewProgressService(userRepo, catalog, enqueuer, cfg.Progress.StreakLocation, logger.Logger)
	profileService := services.NewProfileService(userRepo, logger.Logger)
	certificateService := services.NewCertificateService(userRepo, catalog, logger.Logger)
	lessonService := services.NewLessonService(lessonRepo, lessonCache, gemini, catalog, cfg.Generation.Timeout, logger.Logger)
	regenerationService := services.NewRegenerationService(lessonService, enqueuer, catalog, cfg.Lessons.RegenerationSpacing, logger.Logger)

	// Initialize handlers
	topicHandler := handlers.NewTopicHandler(catalog, logger.Logger)
	profileHandler := handlers.NewProfileHandler(profileService, certificateService, logger.Logger)
	progressHandler := handlers.NewProgressHandler(progressService, logger.Logger)
	lessonHandler := handlers.NewLessonHandler(
		lessonService,
		middleware.UserRateLimitMiddleware(lessonRequestsPerMinute, time.Minute),
		logger.Logger,
	)
	adminHandler := handlers.NewAdminHandler(regenerationService, logger.Logger)
	healthHandler := handlers.NewHealthHandler(db, logger.Logger)

	// Initialize auth middleware
	verifier := auth.NewTokenVerifier(cfg.Identity.Secret, cfg.Identity.Issuer)
	authMiddleware := middleware.AuthMiddleware(verifier, logger.Logger)
	apiKeyMiddleware := middleware.APIKeyMiddleware(cfg.APIKey)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(1 * 1024 * 1024)) // 1MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	healthHandler.RegisterRoutes(r)

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		topicHandler.RegisterRoutes(r)

		// Learner endpoints (identity token)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			profileHandler.RegisterRoutes(r)
			progressHandler.RegisterRoutes(r)
			lessonHandler.RegisterRoutes(r)
		})

		// Admin endpoints (API key)
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			adminHandler.RegisterRoutes(r)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
		// Lesson generation may take several model calls
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Generation.Timeout*2 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "safetyspeak_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
