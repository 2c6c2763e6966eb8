// Package events carries audit and notification events emitted by the
// placement engine to Kafka, and reads them back for the activity sink.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/placement/internal/placement/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	AuditEvent        EventType = "audit"
	NotificationEvent EventType = "notification"
)

type Event struct {
	Type         EventType
	Audit        *models.AuditRecord  `json:",omitempty"`
	Notification *models.Notification `json:",omitempty"`
}

// Key is the partitioning key: the audited entity or the recipient.
func (e Event) Key() string {
	switch {
	case e.Audit != nil:
		return e.Audit.EntityID.String()
	case e.Notification != nil:
		return e.Notification.RecipientID.String()
	default:
		return ""
	}
}

// NewAudit builds an audit event stamped with the current time.
func NewAudit(actorID uuid.UUID, action string, entityType models.EntityType, entityID uuid.UUID) Event {
	return Event{
		Type: AuditEvent,
		Audit: &models.AuditRecord{
			ActorID:    actorID,
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			Timestamp:  time.Now().UTC(),
		},
	}
}

// NewNotification builds a notification event for recipient.
func NewNotification(recipient uuid.UUID, kind models.NotificationType, message string) Event {
	return Event{
		Type: NotificationEvent,
		Notification: &models.Notification{
			ID:          uuid.New(),
			RecipientID: recipient,
			Message:     message,
			Type:        kind,
			CreatedAt:   time.Now().UTC(),
		},
	}
}

// Topics names the Kafka topic of each event type.
type Topics struct {
	Audit        string
	Notification string
}

func (t Topics) of(eventType EventType) string {
	if eventType == NotificationEvent {
		return t.Notification
	}
	return t.Audit
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	topics    Topics
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	loopDone  chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topics Topics) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{Topic: topics.Audit, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: topics.Notification, NumPartitions: 3, ReplicationFactor: 1},
	}
	if err := conn.CreateTopics(topicConfigs...); err != nil {
		logger.Warn("failed to create topics (may already exist)", zap.Error(err))
	}

	// The writer has no default topic; every message names its own.
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return newProducer(writer, logger, topics), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, topics Topics) *Producer {
	p := &Producer{
		writer:    writer,
		topics:    topics,
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues an event without blocking; a full queue drops the event.
func (p *Producer) Produce(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key()),
		)
	}
}

func (p *Producer) eventLoop() {
	if p.loopDone != nil {
		defer close(p.loopDone)
	}
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain flushes whatever is still queued once Close has been called.
func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("key", event.Key()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.of(event.Type),
		Key:   []byte(event.Key()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key()),
		)
	}
}

// Close stops the event loop after the queued events are written, then
// closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	if p.loopDone != nil {
		<-p.loopDone
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
