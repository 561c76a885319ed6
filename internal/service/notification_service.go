package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/models"
	"github.com/b1411/abai-kpi-api/pkg/jobs"
)

const jobTypeLowScoreAlert = "kpi.low_score_alert"

// LowScoreAlert is the payload delivered when a teacher's composite score
// drops below the organization's notification threshold.
type LowScoreAlert struct {
	TeacherID    string            `json:"teacher_id"`
	TeacherName  string            `json:"teacher_name"`
	OverallScore float64           `json:"overall_score"`
	Threshold    float64           `json:"threshold"`
	Trigger      models.RunTrigger `json:"trigger"`
}

// NotificationService delivers low-score alerts asynchronously so the
// recalculation batch never blocks on a slow consumer.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its backing queue.
func NewNotificationService(cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger}
	s.queue = jobs.NewQueue("kpi-notifications", s.handle, cfg)
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyLowScore enqueues an alert for asynchronous delivery.
func (s *NotificationService) NotifyLowScore(alert LowScoreAlert) error {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeLowScoreAlert,
		Payload: alert,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return fmt.Errorf("enqueue low score alert: %w", err)
	}
	return nil
}

func (s *NotificationService) handle(_ context.Context, job jobs.Job) error {
	alert, ok := job.Payload.(LowScoreAlert)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.Type)
	}
	// Delivery channels (email, messenger) hang off this log line; the
	// structured record is the audit trail either way.
	s.logger.Info("low kpi score alert",
		zap.String("teacher_id", alert.TeacherID),
		zap.String("teacher_name", alert.TeacherName),
		zap.Float64("overall_score", alert.OverallScore),
		zap.Float64("threshold", alert.Threshold),
		zap.String("trigger", string(alert.Trigger)),
	)
	return nil
}
