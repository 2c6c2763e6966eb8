// Package activity persists consumed audit and notification events.
package activity

import (
	"context"
	"fmt"

	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"go.uber.org/zap"
)

// Store is the storage used by the sink.
type Store interface {
	SaveActivity(ctx context.Context, record *models.AuditRecord) error
	SaveNotification(ctx context.Context, n *models.Notification) error
}

type Sink struct {
	store  Store
	logger *zap.Logger
}

func NewSink(store Store, logger *zap.Logger) *Sink {
	return &Sink{
		store:  store,
		logger: logger.Named("activity_sink"),
	}
}

// Handle stores one event. Events of unknown type are logged and dropped.
func (s *Sink) Handle(ctx context.Context, event events.Event) error {
	switch {
	case event.Type == events.AuditEvent && event.Audit != nil:
		if err := s.store.SaveActivity(ctx, event.Audit); err != nil {
			return fmt.Errorf("failed to save activity: %w", err)
		}
		s.logger.Debug("Activity stored",
			zap.String("action", event.Audit.Action),
			zap.String("entity_id", event.Audit.EntityID.String()),
		)
	case event.Type == events.NotificationEvent && event.Notification != nil:
		if err := s.store.SaveNotification(ctx, event.Notification); err != nil {
			return fmt.Errorf("failed to save notification: %w", err)
		}
	default:
		s.logger.Warn("Dropping unknown event", zap.String("event_type", string(event.Type)))
	}
	return nil
}
