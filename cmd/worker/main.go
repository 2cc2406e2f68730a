package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/taskboard-app/taskboard/internal/channels"
	"github.com/taskboard-app/taskboard/internal/config"
	"github.com/taskboard-app/taskboard/internal/database"
	"github.com/taskboard-app/taskboard/internal/dispatch"
	"github.com/taskboard-app/taskboard/internal/events"
	"github.com/taskboard-app/taskboard/internal/logger"
	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/scheduler"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Duration("scan_horizon", cfg.ScanHorizon),
		zap.Duration("scan_interval", cfg.ScanInterval),
	)

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

	bus, err := events.NewRabbitMQBus(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := bus.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	retryPolicy := models.RetryPolicy{
		Base:       cfg.RetryBaseDelay,
		Max:        cfg.RetryMaxDelay,
		MaxRetries: cfg.RetryMaxAttempts,
	}
	notifRepo := database.NewNotificationRepository(db, retryPolicy, cfg.ClaimLease)
	prefsRepo := database.NewPreferencesRepository(db)
	inboxRepo := database.NewInboxRepository(db)

	// Channel adapters. Email and telegram are optional: without credentials
	// their notifications stay pending until an operator configures them or
	// the user switches channels off.
	adapters := []channels.Adapter{
		channels.NewInAppAdapter(inboxRepo),
	}
	if cfg.SMTPHost != "" {
		emailAdapter, err := channels.NewEmailAdapter(channels.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			zapLogger.Fatal("failed_to_create_email_adapter", zap.Error(err))
		}
		adapters = append(adapters, emailAdapter)
		zapLogger.Info("email_channel_enabled", zap.String("smtp_host", cfg.SMTPHost))
	} else {
		zapLogger.Warn("email_channel_disabled_no_smtp_host")
	}
	if cfg.TelegramBotToken != "" {
		telegramAdapter, err := channels.NewTelegramAdapter(cfg.TelegramBotToken)
		if err != nil {
			zapLogger.Fatal("failed_to_create_telegram_adapter", zap.Error(err))
		}
		adapters = append(adapters, telegramAdapter)
		zapLogger.Info("telegram_channel_enabled")
	} else {
		zapLogger.Warn("telegram_channel_disabled_no_bot_token")
	}

	sched := scheduler.New(taskRepo, notifRepo, prefsRepo, bus, scheduler.Config{
		LookaheadHorizon: cfg.ScanHorizon,
		LeadTime:         cfg.ScanLeadTime,
		ScanInterval:     cfg.ScanInterval,
	}, zapLogger)

	dispatcher := dispatch.New(notifRepo, taskRepo, prefsRepo, adapters, dispatch.Config{
		WorkersPerChannel: cfg.DispatchWorkers,
		BatchSize:         cfg.DispatchBatch,
		PollInterval:      cfg.DispatchPoll,
		DeliveryTimeout:   cfg.DeliveryTimeout,
	}, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx, cfg.RabbitMQPrefetch); err != nil && err != context.Canceled {
			zapLogger.Error("scheduler_stopped_with_error", zap.Error(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	zapLogger.Info("worker_started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("shutdown_signal_received")
	cancel()
	wg.Wait()

	zapLogger.Info("worker_stopped")
}
