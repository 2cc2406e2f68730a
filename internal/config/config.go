package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	BaseURL     string
	FrontendURL string
	EnableHSTS  bool

	JWTSecret string

	RedisURL      string
	RateLimitRate string

	RabbitMQURL      string
	RabbitMQPrefetch int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TelegramBotToken string

	ScanHorizon  time.Duration
	ScanLeadTime time.Duration
	ScanInterval time.Duration

	DispatchWorkers  int
	DispatchBatch    int
	DispatchPoll     time.Duration
	DeliveryTimeout  time.Duration
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	RetryMaxAttempts int
	ClaimLease       time.Duration

	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:  getEnvBool("ENABLE_HSTS", false),

		JWTSecret: getEnv("JWT_SECRET", ""),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RateLimitRate: getEnv("RATE_LIMIT_RATE", "100-M"),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		ScanHorizon:  getEnvDuration("SCAN_HORIZON", 24*time.Hour),
		ScanLeadTime: getEnvDuration("SCAN_LEAD_TIME", time.Hour),
		ScanInterval: getEnvDuration("SCAN_INTERVAL", time.Minute),

		DispatchWorkers:  getEnvInt("DISPATCH_WORKERS_PER_CHANNEL", 2),
		DispatchBatch:    getEnvInt("DISPATCH_BATCH_SIZE", 20),
		DispatchPoll:     getEnvDuration("DISPATCH_POLL_INTERVAL", 5*time.Second),
		DeliveryTimeout:  getEnvDuration("DELIVERY_TIMEOUT", 15*time.Second),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 30*time.Second),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 15*time.Minute),
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 5),
		ClaimLease:       getEnvDuration("CLAIM_LEASE", 2*time.Minute),

		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for lifecycle event delivery")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
