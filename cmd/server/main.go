package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/taskboard-app/taskboard/internal/config"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/handlers"
	"github.com/taskboard-app/taskboard/internal/lifecycle"
	"github.com/taskboard-app/taskboard/internal/logger"
	"github.com/taskboard-app/taskboard/internal/middleware"
	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/telemetry"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "taskboard-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Connect to Redis for rate limiting
	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for lifecycle events (required).
	// Retry connection with exponential backoff to handle broker startup delays.
	bus := connectBus(cfg.RabbitMQURL, zapLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	// Initialize repositories
	taskRepo := database.NewTaskRepository(db)
	retryPolicy := models.RetryPolicy{
		Base:       cfg.RetryBaseDelay,
		Max:        cfg.RetryMaxDelay,
		MaxRetries: cfg.RetryMaxAttempts,
	}
	notifRepo := database.NewNotificationRepository(db, retryPolicy, cfg.ClaimLease)
	prefsRepo := database.NewPreferencesRepository(db)
	inboxRepo := database.NewInboxRepository(db)

	// Lifecycle engine owns all task state mutations
	engine := lifecycle.NewEngine(taskRepo, bus, zapLogger)

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskRepo, engine)
	notifHandler := handlers.NewNotificationHandler(taskRepo, notifRepo, bus)
	prefsHandler := handlers.NewPreferencesHandler(prefsRepo)
	inboxHandler := handlers.NewInboxHandler(inboxRepo)
	healthChecker := handlers.NewHealthChecker(db, bus, redisLimiter)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("taskboard-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisLimiter, cfg.RateLimitRate)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// OpenAPI spec (public)
	openAPIPath := filepath.Join("api", "openapi.yaml")
	openAPIHandler := handlers.NewOpenAPIHandler(openAPIPath)
	openAPIHandler.RegisterRoutes(r)

	// API v1 routes (all protected)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth([]byte(cfg.JWTSecret)))
	apiRouter.Use(rateLimitMW)

	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	taskHandler.RegisterRoutes(tasksRouter)

	notifHandler.RegisterRoutes(apiRouter)

	prefsRouter := apiRouter.PathPrefix("/preferences").Subrouter()
	prefsHandler.RegisterRoutes(prefsRouter)

	inboxRouter := apiRouter.PathPrefix("/inbox").Subrouter()
	inboxHandler.RegisterRoutes(inboxRouter)

	// Catch-all OPTIONS handler so preflight requests succeed on every route
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectBus dials RabbitMQ, retrying with exponential backoff capped at 30s
func connectBus(amqpURL string, zapLogger *zap.Logger) *events.RabbitMQBus {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		bus, err := events.NewRabbitMQBus(amqpURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return bus
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	return nil
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
