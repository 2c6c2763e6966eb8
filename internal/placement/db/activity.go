package db

import (
	"context"

	rows "github.com/gartstein/placement/internal/placement/db/models"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
)

func (r *Repository) SaveActivity(ctx context.Context, record *models.AuditRecord) error {
	return r.db.WithContext(ctx).Create(&rows.ActivityLog{
		ActorID:    record.ActorID,
		Action:     record.Action,
		EntityType: string(record.EntityType),
		EntityID:   record.EntityID,
		CreatedAt:  record.Timestamp,
	}).Error
}

func (r *Repository) ListActivity(ctx context.Context, entityID uuid.UUID) ([]models.AuditRecord, error) {
	var found []rows.ActivityLog
	result := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("id").
		Find(&found)
	if result.Error != nil {
		return nil, result.Error
	}
	records := make([]models.AuditRecord, 0, len(found))
	for _, row := range found {
		records = append(records, models.AuditRecord{
			ActorID:    row.ActorID,
			Action:     row.Action,
			EntityType: models.EntityType(row.EntityType),
			EntityID:   row.EntityID,
			Timestamp:  row.CreatedAt,
		})
	}
	return records, nil
}

func (r *Repository) SaveNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(&rows.Notification{
		ID:        n.ID,
		UserID:    n.RecipientID,
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}).Error
}

func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var found []rows.Notification
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&found)
	if result.Error != nil {
		return nil, result.Error
	}
	notifications := make([]models.Notification, 0, len(found))
	for _, row := range found {
		notifications = append(notifications, models.Notification{
			ID:          row.ID,
			RecipientID: row.UserID,
			Message:     row.Message,
			Type:        models.NotificationType(row.Type),
			Read:        row.Read,
			CreatedAt:   row.CreatedAt,
		})
	}
	return notifications, nil
}
