package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/gartstein/placement/internal/placement/db"
	"github.com/gartstein/placement/internal/placement/events"
	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestSink_Handle(t *testing.T) {
	repo, err := db.NewRepository(&db.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	sink := NewSink(repo, zaptest.NewLogger(t))
	ctx := context.Background()

	driveID := uuid.New()
	recipient := uuid.New()
	require.NoError(t, sink.Handle(ctx, events.NewAudit(uuid.New(), "drive_approved", models.EntityDrive, driveID)))
	require.NoError(t, sink.Handle(ctx, events.NewNotification(recipient, models.NotifyDriveApproval, "Your drive was approved")))

	activity, err := repo.ListActivity(ctx, driveID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "drive_approved", activity[0].Action)

	notifications, err := repo.ListNotifications(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Your drive was approved", notifications[0].Message)
	assert.False(t, notifications[0].Read)
}

type failingStore struct{}

func (failingStore) SaveActivity(context.Context, *models.AuditRecord) error {
	return errors.New("db down")
}

func (failingStore) SaveNotification(context.Context, *models.Notification) error {
	return errors.New("db down")
}

func TestSink_HandleErrors(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	sink := NewSink(failingStore{}, zap.New(core))
	ctx := context.Background()

	err := sink.Handle(ctx, events.NewAudit(uuid.New(), "drive_created", models.EntityDrive, uuid.New()))
	assert.ErrorContains(t, err, "failed to save activity")

	err = sink.Handle(ctx, events.NewNotification(uuid.New(), models.NotifyApplicationStatus, "x"))
	assert.ErrorContains(t, err, "failed to save notification")

	assert.NoError(t, sink.Handle(ctx, events.Event{Type: "bogus"}))
	assert.Equal(t, 1, recorded.FilterMessage("Dropping unknown event").Len())
}
