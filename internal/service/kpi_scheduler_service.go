package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	"github.com/b1411/abai-kpi-api/pkg/config"
	appErrors "github.com/b1411/abai-kpi-api/pkg/errors"
)

const defaultErrorSampleLimit = 10

// cronEngine is the subset of *cron.Cron the scheduler relies on. Tests swap
// in a fake so runs can be driven synchronously.
type cronEngine interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

type snapshotWriter interface {
	InsertSnapshot(ctx context.Context, snapshot *models.KpiSnapshot) error
	InsertRun(ctx context.Context, run *models.RecalculationRun) error
}

type lowScoreNotifier interface {
	NotifyLowScore(alert LowScoreAlert) error
}

// KpiSchedulerService owns wall-clock and manual recalculation of all teacher
// scores. A weighted semaphore keeps runs single-flight: a trigger that
// arrives while a batch is in progress is rejected, never queued.
type KpiSchedulerService struct {
	teachers      teacherReader
	settings      settingsReader
	snapshots     snapshotWriter
	kpi           *KpiService
	notifications lowScoreNotifier
	metrics       *MetricsService
	logger        *zap.Logger

	cfg         config.SchedulerConfig
	errorSample int
	cron        cronEngine
	runLock     *semaphore.Weighted
	now         func() time.Time
}

// KpiSchedulerParams groups constructor dependencies.
type KpiSchedulerParams struct {
	Teachers      teacherReader
	Settings      settingsReader
	Snapshots     snapshotWriter
	Kpi           *KpiService
	Notifications lowScoreNotifier
	Metrics       *MetricsService
	Logger        *zap.Logger
	Config        config.SchedulerConfig
	ErrorSample   int
	Cron          cronEngine
}

// NewKpiSchedulerService constructs the scheduler. When no cron engine is
// injected a real one is created; it stays idle until Start.
func NewKpiSchedulerService(params KpiSchedulerParams) *KpiSchedulerService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := params.Cron
	if engine == nil {
		engine = cron.New()
	}
	sample := params.ErrorSample
	if sample <= 0 {
		sample = defaultErrorSampleLimit
	}
	return &KpiSchedulerService{
		teachers:      params.Teachers,
		settings:      params.Settings,
		snapshots:     params.Snapshots,
		kpi:           params.Kpi,
		notifications: params.Notifications,
		metrics:       params.Metrics,
		logger:        logger,
		cfg:           params.Config,
		errorSample:   sample,
		cron:          engine,
		runLock:       semaphore.NewWeighted(1),
		now:           time.Now,
	}
}

// Start registers the cron entries and launches the engine. Every cadence is
// registered; which one actually recalculates is decided at fire time from the
// organization's configured calculation period, so changing the period never
// requires a restart.
func (s *KpiSchedulerService) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("kpi scheduler disabled")
		return nil
	}

	entries := []struct {
		period models.CalculationPeriod
		spec   string
	}{
		{models.PeriodDaily, fmt.Sprintf("0 %d * * *", s.cfg.DailyHour)},
		{models.PeriodWeekly, fmt.Sprintf("0 %d * * 1", s.cfg.WeeklyHour)},
		{models.PeriodMonthly, fmt.Sprintf("0 %d 1 * *", s.cfg.MonthlyHour)},
		{models.PeriodQuarterly, fmt.Sprintf("0 %d 1 1,4,7,10 *", s.cfg.QuarterlyHour)},
	}
	for _, entry := range entries {
		period := entry.period
		if _, err := s.cron.AddFunc(entry.spec, func() { s.fire(ctx, period) }); err != nil {
			return fmt.Errorf("register %s schedule: %w", period, err)
		}
	}
	s.cron.Start()
	s.logger.Info("kpi scheduler started",
		zap.Int("daily_hour", s.cfg.DailyHour),
		zap.Int("weekly_hour", s.cfg.WeeklyHour),
		zap.Int("monthly_hour", s.cfg.MonthlyHour),
		zap.Int("quarterly_hour", s.cfg.QuarterlyHour),
	)
	return nil
}

// Stop halts the cron engine and waits for a running entry to finish.
func (s *KpiSchedulerService) Stop() {
	done := s.cron.Stop()
	<-done.Done()
	s.logger.Info("kpi scheduler stopped")
}

// fire runs a scheduled batch when the fired cadence matches the organization
// setting. A busy run-lock is logged and dropped, not retried.
func (s *KpiSchedulerService) fire(ctx context.Context, period models.CalculationPeriod) {
	org, err := s.settings.GetOrganizationSettings(ctx)
	if err != nil {
		s.logger.Error("load organization settings", zap.Error(err))
		return
	}
	if org.CalculationPeriod != period {
		return
	}
	if _, err := s.Run(ctx, models.TriggerScheduled); err != nil {
		s.logger.Error("scheduled recalculation failed", zap.String("period", string(period)), zap.Error(err))
	}
}

// ManualRecalculation runs a full batch on demand.
func (s *KpiSchedulerService) ManualRecalculation(ctx context.Context) (*dto.RecalculationSummary, error) {
	return s.Run(ctx, models.TriggerManual)
}

// Run recalculates every active teacher sequentially. One teacher's failure
// is counted and sampled, never aborts the batch.
func (s *KpiSchedulerService) Run(ctx context.Context, trigger models.RunTrigger) (*dto.RecalculationSummary, error) {
	if !s.runLock.TryAcquire(1) {
		return nil, appErrors.ErrRunInProgress
	}
	defer s.runLock.Release(1)

	started := s.now()
	s.logger.Info("kpi recalculation started", zap.String("trigger", string(trigger)))

	settings, err := s.settings.ListMetricSettings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load metric settings")
	}
	org, err := s.settings.GetOrganizationSettings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization settings")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	summary := &dto.RecalculationSummary{Errors: []string{}}
	var scoreSum float64
	for _, teacher := range teachers {
		snapshot, err := s.kpi.ComputeTeacherSnapshot(ctx, teacher, settings, trigger)
		if err == nil {
			err = s.snapshots.InsertSnapshot(ctx, snapshot)
		}
		if err != nil {
			summary.ErrorCount++
			if len(summary.Errors) < s.errorSample {
				summary.Errors = append(summary.Errors, fmt.Sprintf("teacher %s: %v", teacher.ID, err))
			}
			s.logger.Warn("teacher recalculation failed", zap.String("teacher_id", teacher.ID), zap.Error(err))
			continue
		}
		summary.SuccessCount++
		scoreSum += snapshot.OverallScore
		s.maybeNotify(org, teacher, snapshot)
	}

	finished := s.now()
	summary.ProcessingTimeMs = finished.Sub(started).Milliseconds()

	run := &models.RecalculationRun{
		Trigger:      trigger,
		SuccessCount: summary.SuccessCount,
		ErrorCount:   summary.ErrorCount,
		DurationMs:   summary.ProcessingTimeMs,
		StartedAt:    started.UTC(),
		FinishedAt:   finished.UTC(),
	}
	if err := s.snapshots.InsertRun(ctx, run); err != nil {
		s.logger.Error("persist recalculation run", zap.Error(err))
	}

	meanScore := 0.0
	if summary.SuccessCount > 0 {
		meanScore = scoreSum / float64(summary.SuccessCount)
	}
	if s.metrics != nil {
		s.metrics.ObserveRecalculation(string(trigger), finished.Sub(started), summary.SuccessCount, summary.ErrorCount, meanScore)
	}
	s.kpi.InvalidateCache(ctx)

	s.logger.Info("kpi recalculation finished",
		zap.String("trigger", string(trigger)),
		zap.Int("success", summary.SuccessCount),
		zap.Int("errors", summary.ErrorCount),
		zap.Int64("duration_ms", summary.ProcessingTimeMs),
		zap.Float64("mean_score", meanScore),
	)
	return summary, nil
}

func (s *KpiSchedulerService) maybeNotify(org *models.OrganizationKpiSettings, teacher models.Teacher, snapshot *models.KpiSnapshot) {
	if s.notifications == nil || org == nil || !org.AutoNotifications {
		return
	}
	if snapshot.OverallScore >= org.NotificationThreshold {
		return
	}
	alert := LowScoreAlert{
		TeacherID:    teacher.ID,
		TeacherName:  teacher.FullName,
		OverallScore: snapshot.OverallScore,
		Threshold:    org.NotificationThreshold,
		Trigger:      snapshot.Trigger,
	}
	if err := s.notifications.NotifyLowScore(alert); err != nil {
		s.logger.Warn("enqueue low score alert", zap.String("teacher_id", teacher.ID), zap.Error(err))
	}
}
