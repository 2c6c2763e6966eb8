package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var testTopics = Topics{Audit: "placement.audit", Notification: "placement.notifications"}

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestNewProducer(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), testTopics)
	defer producer.Close()

	assert.NotNil(t, producer.writer)
	assert.NotNil(t, producer.events)
	assert.NotNil(t, producer.closeChan)
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := &Producer{
			events: make(chan Event, 10),
			logger: zaptest.NewLogger(t),
		}

		producer.Produce(NewAudit(uuid.New(), "drive_approved", models.EntityDrive, uuid.New()))

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{
			events: make(chan Event, 1),
			logger: zap.New(core),
		}
		event := NewNotification(uuid.New(), models.NotifyDriveApproval, "approved")

		producer.Produce(event)
		producer.Produce(event) // This should be dropped

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &Producer{
		writer: mockWriter,
		topics: testTopics,
		logger: zaptest.NewLogger(t),
	}

	t.Run("audit goes to audit topic keyed by entity", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
		entity := uuid.New()
		event := NewAudit(uuid.New(), "application_created", models.EntityApplication, entity)

		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Topic: testTopics.Audit,
				Key:   []byte(entity.String()),
				Value: mustMarshal(event),
			},
		})
	})

	t.Run("notification goes to notification topic keyed by recipient", func(t *testing.T) {
		recipient := uuid.New()
		event := NewNotification(recipient, models.NotifyApplicationStatus, "shortlisted")

		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Topic: testTopics.Notification,
				Key:   []byte(recipient.String()),
				Value: mustMarshal(event),
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		entity := uuid.New()
		producer.sendEvent(context.Background(), NewAudit(uuid.New(), "drive_created", models.EntityDrive, entity))

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("key", entity.String())).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), NewAudit(uuid.New(), "drive_created", models.EntityDrive, uuid.New()))

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)

	producer := &Producer{
		writer:    mockWriter,
		closeChan: make(chan struct{}),
		logger:    zaptest.NewLogger(t),
	}

	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}

	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_CloseFlushesQueuedEvents(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	// Holding the first write keeps the rest of the queue in the buffer
	// until Close is called.
	release := make(chan struct{})
	first := true
	var mu sync.Mutex
	var keys []string
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			wait := first
			first = false
			keys = append(keys, string(args.Get(1).([]kafka.Message)[0].Key))
			mu.Unlock()
			if wait {
				<-release
			}
		}).
		Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), testTopics)
	var want []string
	for i := 0; i < 5; i++ {
		event := NewAudit(uuid.New(), "drive_created", models.EntityDrive, uuid.New())
		want = append(want, event.Key())
		producer.Produce(event)
	}

	closed := make(chan struct{})
	go func() {
		producer.Close()
		close(closed)
	}()
	close(release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, keys)
	mockWriter.AssertNumberOfCalls(t, "WriteMessages", 5)
	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_EventLoop(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	written := make(chan struct{}, 1)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { written <- struct{}{} }).
		Return(nil)

	producer := &Producer{
		writer:    mockWriter,
		topics:    testTopics,
		events:    make(chan Event, 1),
		logger:    zaptest.NewLogger(t),
		closeChan: make(chan struct{}),
	}
	go producer.eventLoop()
	defer close(producer.closeChan)

	producer.events <- NewAudit(uuid.New(), "company_approved", models.EntityCompany, uuid.New())

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
	mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	event := NewNotification(uuid.New(), models.NotifyCompanyApproval, "Your company was approved")

	var decoded Event
	require.NoError(t, json.Unmarshal(mustMarshal(event), &decoded))
	assert.Equal(t, NotificationEvent, decoded.Type)
	assert.Nil(t, decoded.Audit)
	require.NotNil(t, decoded.Notification)
	assert.Equal(t, event.Notification.RecipientID, decoded.Notification.RecipientID)
}

func mustMarshal(e Event) []byte {
	data, _ := json.Marshal(e)
	return data
}
