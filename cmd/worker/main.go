package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"github.com/safetyspeak/backend/internal/config"
	"github.com/safetyspeak/backend/internal/curriculum"
	"github.com/safetyspeak/backend/internal/generator"
	"github.com/safetyspeak/backend/internal/logger"
	"github.com/safetyspeak/backend/internal/repositories"
	"github.com/safetyspeak/backend/internal/services"
	"github.com/safetyspeak/backend/internal/tasks"
	"go.uber.org/zap"
)

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

	logger.Logger.Info("Starting SafetySpeak Worker")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

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

	// Load curriculum
	catalog, err := curriculum.Load(cfg.Lessons.CurriculumFile)
	if err != nil {
		logger.Logger.Fatal("Failed to load curriculum", zap.Error(err))
	}

	// Initialize repositories
	documentRepo := repositories.NewDocumentRepository(db, logger.Logger)
	userRepo := repositories.NewUserRepository(documentRepo)
	lessonRepo := repositories.NewLessonRepository(documentRepo)
	lessonCache := repositories.NewLessonCacheRepository(rdb, cfg.Lessons.CacheTTL)

	// Initialize lesson service
	gemini := generator.NewGeminiClient(generator.Config{
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		BaseURL: cfg.Generation.BaseURL,
		Timeout: cfg.Generation.Timeout,
	}, logger.Logger)
	lessonService := services.NewLessonService(lessonRepo, lessonCache, gemini, catalog, cfg.Generation.Timeout, logger.Logger)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Generation calls are slow and rate limited upstream
			Concurrency: 4,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueLessons: 1,
			},
		},
	)

	// Create worker instance
	worker := NewWorker(
		logger.Logger,
		lessonService,
		userRepo,
		catalog,
		SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		},
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeLessonGenerate, worker.HandleLessonGenerate)
	mux.HandleFunc(tasks.TypeCertificateEmail, worker.HandleCertificateEmail)

	// Start worker
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to start worker", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
