package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// Notification delivery outcomes.
const (
	NotificationOutcomeDelivered = "delivered"
	NotificationOutcomeFailed    = "failed"
	NotificationOutcomeDropped   = "dropped"
)

const timetableEventJobType = "timetable_event"

// EventPublisher delivers a timetable event to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.TimetableEvent) error
}

type notificationQueue interface {
	TryEnqueue(job jobs.Job) error
}

type messagePublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body interface{}) error
}

// BrokerPublisher routes events to a message broker keyed by event type.
type BrokerPublisher struct {
	broker messagePublisher
}

// NewBrokerPublisher wraps a broker publisher.
func NewBrokerPublisher(broker messagePublisher) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

// PublishEvent sends the event with its type as routing key.
func (p *BrokerPublisher) PublishEvent(ctx context.Context, event models.TimetableEvent) error {
	return p.broker.Publish(ctx, string(event.Type), event.ID, event)
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher constructs a log-only publisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// PublishEvent logs the event.
func (p *LogPublisher) PublishEvent(ctx context.Context, event models.TimetableEvent) error {
	p.logger.Info("timetable event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("entry_id", event.EntryID),
		zap.String("section_id", event.SectionID),
		zap.String("teacher_id", event.TeacherID),
		zap.String("day", event.DayOfWeek.String()),
		zap.Int("period", event.Period),
		zap.String("room", event.Room),
	)
	return nil
}

// NotificationService hands lifecycle events to a background queue. Delivery never blocks or fails the caller.
type NotificationService struct {
	publisher EventPublisher
	queue     notificationQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs the service. Attach a queue with UseQueue; without one events are delivered inline.
func NewNotificationService(publisher EventPublisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, metrics: metrics, logger: logger}
}

// UseQueue routes future events through queue.
func (s *NotificationService) UseQueue(queue notificationQueue) {
	s.queue = queue
}

// Publish schedules delivery of event.
func (s *NotificationService) Publish(ctx context.Context, event models.TimetableEvent) {
	if s.queue == nil {
		_ = s.deliver(ctx, event)
		return
	}
	job := jobs.Job{ID: event.ID, Type: timetableEventJobType, Payload: event}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordNotification(string(event.Type), NotificationOutcomeDropped)
		s.logger.Warn("timetable event dropped", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// HandleJob is the queue handler for timetable events.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.TimetableEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("payload_type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.deliver(ctx, event)
}

func (s *NotificationService) deliver(ctx context.Context, event models.TimetableEvent) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.metrics.RecordNotification(string(event.Type), NotificationOutcomeFailed)
		s.logger.Warn("timetable event delivery failed", zap.String("event_id", event.ID), zap.String("type", string(event.Type)), zap.Error(err))
		return err
	}
	s.metrics.RecordNotification(string(event.Type), NotificationOutcomeDelivered)
	return nil
}
