package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/placement/internal/placement/auth"
	"github.com/gartstein/placement/internal/placement/cache"
	"github.com/gartstein/placement/internal/placement/config"
	"github.com/gartstein/placement/internal/placement/controller"
	gorm "github.com/gartstein/placement/internal/placement/db"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/handlers"
	"github.com/gartstein/placement/internal/placement/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := connectDatabase(initDatabase(cfg, logger), logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, events.Topics{
		Audit:        cfg.AuditTopic,
		Notification: cfg.NotificationTopic,
	})
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	tp, err := initTracing(cfg)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Failed to flush traces", zap.Error(err))
		}
	}()

	m := metrics.New()
	opts := []controller.Option{controller.WithRecorder(m), controller.WithTracerProvider(tp)}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.NewClient(ctx, cfg.RedisURL)
	cancel()
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, dashboard stats are not cached", zap.Error(err))
	case redisClient != nil:
		defer redisClient.Close()
		opts = append(opts, controller.WithStatsCache(cache.NewStatsCache(redisClient, cfg.StatsCacheTTL, logger, m)))
	}

	registry := controller.NewRegistryService(repo, producer, logger, opts...)
	if cfg.AdminEmail != "" {
		if _, err := registry.EnsureAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail); err != nil {
			logger.Fatal("failed to bootstrap admin account", zap.Error(err))
		}
	}

	api := handlers.NewAPI(handlers.Services{
		Registry:     registry,
		Drives:       controller.NewDriveService(repo, producer, logger, opts...),
		Applications: controller.NewApplicationService(repo, producer, logger, opts...),
		Interviews:   controller.NewInterviewService(repo, producer, logger, opts...),
		Moderation:   controller.NewModerationService(repo, producer, logger, opts...),
		Reports:      controller.NewReportService(repo, logger, opts...),
	}, logger)

	// Only the public health methods are registered on gRPC; the interceptor
	// rejects any other method without a valid token.
	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger,
		grpc.ChainUnaryInterceptor(handlers.LoggingInterceptor(logger), authInterceptor.Unary()))

	if err := server.RegisterHTTPHandler(api, repo, cfg.JWTSecret); err != nil {
		logger.Fatal("Failed to register HTTP handlers", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// initTracing installs the global tracer provider. Spans are exported to
// stdout only when tracing is enabled.
func initTracing(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	var opts []sdktrace.TracerProviderOption
	if cfg.TracingEnabled {
		exporter, err := stdouttrace.New()
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// initDatabase maps the service config onto the repository config.
func initDatabase(cfg *config.Config, logger *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Path:     cfg.DBPath,
		Logger:   logger,
	}
}

// connectDatabase retries until the database accepts connections.
func connectDatabase(dbConf *gorm.Config, logger *zap.Logger) (*gorm.Repository, error) {
	var repo *gorm.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = gorm.NewRepository(dbConf)
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), func(err error, next time.Duration) {
		logger.Warn("Database not ready", zap.Error(err), zap.Duration("retry_in", next))
	})
	return repo, err
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
