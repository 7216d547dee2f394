// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Logging    LoggingConfig
	CORS       CORSConfig
	Identity   IdentityConfig
	Generation GenerationConfig
	Lessons    LessonsConfig
	Progress   ProgressConfig
	SMTP       SMTPConfig
	APIKey     string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// IdentityConfig holds settings for verifying identity provider tokens
type IdentityConfig struct {
	Secret string
	Issuer string
}

// GenerationConfig holds lesson generator settings
type GenerationConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds each generation attempt; a lesson gets at most two attempts
	Timeout time.Duration
}

// LessonsConfig holds lesson cache and curriculum settings
type LessonsConfig struct {
	CacheTTL            time.Duration
	CurriculumFile      string
	WarmupCron          string
	RegenerationSpacing time.Duration
}

// ProgressConfig holds progress tracking settings
type ProgressConfig struct {
	StreakLocation *time.Location
}

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Redis configuration
	cfg.Redis.Host = getEnvDefault("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = getIntDefault("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = getIntDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// Server configuration
	if cfg.Server.Port, err = getIntDefault("SERVER_PORT", 8080); err != nil {
		return nil, err
	}

	// Logging configuration
	cfg.Logging.Level = getEnvDefault("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Identity provider configuration
	cfg.Identity.Secret = os.Getenv("IDENTITY_JWT_SECRET")
	if cfg.Identity.Secret == "" {
		return nil, fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}
	cfg.Identity.Issuer = os.Getenv("IDENTITY_ISSUER")

	cfg.APIKey = os.Getenv("ADMIN_API_KEY")

	// Lesson generator configuration
	cfg.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Generation.Model = getEnvDefault("GEMINI_MODEL", "gemini-flash-lite-latest")
	cfg.Generation.BaseURL = strings.TrimRight(getEnvDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/")
	timeoutSeconds, err := getIntDefault("GENERATION_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if timeoutSeconds <= 0 {
		return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be positive")
	}
	cfg.Generation.Timeout = time.Duration(timeoutSeconds) * time.Second

	// Lessons configuration
	cacheTTLHours, err := getIntDefault("LESSON_CACHE_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.Lessons.CacheTTL = time.Duration(cacheTTLHours) * time.Hour
	cfg.Lessons.CurriculumFile = os.Getenv("CURRICULUM_FILE")
	cfg.Lessons.WarmupCron = os.Getenv("LESSON_WARMUP_CRON")
	spacingSeconds, err := getIntDefault("REGENERATION_SPACING_SECONDS", 2)
	if err != nil {
		return nil, err
	}
	cfg.Lessons.RegenerationSpacing = time.Duration(spacingSeconds) * time.Second

	// Progress configuration
	location, err := time.LoadLocation(getEnvDefault("STREAK_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAK_TIMEZONE: %w", err)
	}
	cfg.Progress.StreakLocation = location

	// SMTP configuration
	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	if cfg.SMTP.Port, err = getIntDefault("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("SMTP_FROM")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

// RedisAddr returns the Redis address in host:port form
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// parseOrigins parses comma-separated CORS origins.
// Empty input allows all origins (for development).
func parseOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}

func getEnvDefault(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getIntDefault(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return i, nil
}
