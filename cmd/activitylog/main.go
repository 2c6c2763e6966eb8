// The activity log worker consumes audit and notification events and
// stores them for the activity and notification views.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/placement/internal/placement/activity"
	"github.com/gartstein/placement/internal/placement/config"
	gorm "github.com/gartstein/placement/internal/placement/db"
	"github.com/gartstein/placement/internal/placement/events"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	var repo *gorm.Repository
	err = backoff.Retry(func() error {
		repo, err = gorm.NewRepository(&gorm.Config{
			Driver:   cfg.DBDriver,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
			Path:     cfg.DBPath,
			Logger:   logger,
		})
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, events.Topics{
		Audit:        cfg.AuditTopic,
		Notification: cfg.NotificationTopic,
	}, logger)
	consumer.RegisterHandler(activity.NewSink(repo, logger).Handle)
	consumer.Start(ctx)
	logger.Info("Activity log consumer started", zap.String("group", cfg.ConsumerGroup))

	<-ctx.Done()
	consumer.Close()
	logger.Info("Activity log consumer stopped")
}
