package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragavi-632007/exam-timetable/internal/models"
	"github.com/ragavi-632007/exam-timetable/pkg/jobs"
)

const jobTypeDepartmentNotification = "department_notification"

// Notification delivery results recorded in department_notifications_total.
const (
	notificationDelivered = "delivered"
	notificationFailed    = "failed"
	notificationDropped   = "dropped"
)

type notificationPublisher interface {
	Publish(ctx context.Context, n models.DepartmentNotification) error
}

// NotificationConfig sizes the delivery queue.
type NotificationConfig struct {
	Workers    int
	BufferSize int
}

// NotificationService hands department notifications to a bounded worker queue. Delivery is
// at-most-once: a full buffer or a failing sink loses the message after logging it.
type NotificationService struct {
	queue     *jobs.Queue
	publisher notificationPublisher
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService builds the service. Start must be called before Notify delivers anything.
func NewNotificationService(publisher notificationPublisher, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{publisher: publisher, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("department-notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: 0,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for in-flight deliveries and drops whatever is still buffered.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues one job per notification without blocking the caller.
func (s *NotificationService) Notify(ctx context.Context, notifications []models.DepartmentNotification) {
	for _, n := range notifications {
		err := s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeDepartmentNotification, Payload: n})
		if err == nil {
			continue
		}
		s.metrics.RecordNotification(notificationDropped)
		level := s.logger.Warn
		if !errors.Is(err, jobs.ErrQueueFull) {
			level = s.logger.Error
		}
		level("department notification dropped",
			zap.String("department", n.DepartmentName),
			zap.String("subject", n.SubjectName),
			zap.String("exam_date", n.ExamDate),
			zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.DepartmentNotification)
	if !ok {
		s.metrics.RecordNotification(notificationFailed)
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}

	s.logger.Info("exam synchronized to department",
		zap.String("department", n.DepartmentName),
		zap.String("subject", n.SubjectName),
		zap.String("exam_date", n.ExamDate),
		zap.String("exam_type", n.ExamType),
		zap.String("origin_department", n.OriginDepartment))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.metrics.RecordNotification(notificationFailed)
			return err
		}
	}
	s.metrics.RecordNotification(notificationDelivered)
	return nil
}
