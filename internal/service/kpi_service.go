package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	appErrors "github.com/b1411/abai-kpi-api/pkg/errors"
)

const (
	kpiCachePrefix     = "kpi"
	minFeedbackSamples = 5
)

type teacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	WorkloadsByTeacher(ctx context.Context, teacherID string) ([]models.WorkloadRecord, error)
	SchedulesByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleEntry, error)
	StudyPlansByTeacher(ctx context.Context, teacherID string) ([]models.StudyPlan, error)
}

type lessonReader interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.LessonResult, error)
}

type settingsReader interface {
	ListMetricSettings(ctx context.Context) ([]models.MetricSetting, error)
	GetOrganizationSettings(ctx context.Context) (*models.OrganizationKpiSettings, error)
}

type snapshotReader interface {
	ListByTeacher(ctx context.Context, teacherID string, limit int) ([]models.KpiSnapshot, error)
}

type feedbackAggregator interface {
	AggregateStudentRetention(ctx context.Context, teacherID, period string) (models.AggregationResult, error)
	AggregateParentFeedback(ctx context.Context, teacherID, period string) (map[string]models.AggregationResult, error)
	AggregateTeacherEvaluations(ctx context.Context, teacherID, period string) (models.AggregationResult, error)
}

// KpiService combines metric values into composite teacher scores and serves
// the KPI read API.
type KpiService struct {
	teachers    teacherReader
	lessons     lessonReader
	settings    settingsReader
	snapshots   snapshotReader
	aggregation feedbackAggregator
	calculator  *MetricCalculator
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// KpiServiceParams groups constructor dependencies.
type KpiServiceParams struct {
	Teachers    teacherReader
	Lessons     lessonReader
	Settings    settingsReader
	Snapshots   snapshotReader
	Aggregation feedbackAggregator
	Calculator  *MetricCalculator
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewKpiService constructs a KpiService.
func NewKpiService(params KpiServiceParams) *KpiService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calculator := params.Calculator
	if calculator == nil {
		calculator = NewMetricCalculator(logger)
	}
	return &KpiService{
		teachers:    params.Teachers,
		lessons:     params.Lessons,
		settings:    params.Settings,
		snapshots:   params.Snapshots,
		aggregation: params.Aggregation,
		calculator:  calculator,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
	}
}

// CompositeScore folds available metric values into one 0-100 score using the
// active settings' weights. When some active metrics are unavailable the
// result is renormalized over the weights that did contribute: teachers are
// scored on what is measurable, not penalized for missing data sources.
func CompositeScore(values models.MetricValueMap, settings []models.MetricSetting) float64 {
	var totalScore, totalWeight float64
	for _, setting := range settings {
		if !setting.Active {
			continue
		}
		value, ok := values[setting.Key]
		if !ok || !value.Available {
			continue
		}
		totalScore += value.Score * setting.Weight / 100
		totalWeight += setting.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	if totalWeight < 100 {
		return totalScore / totalWeight * 100
	}
	return totalScore
}

// GetTeacherKpiDetails returns current metric values, weights and the
// composite score for one teacher. The boolean reports a cache hit.
func (s *KpiService) GetTeacherKpiDetails(ctx context.Context, teacherID string) (*dto.TeacherKpiDetailsResponse, bool, error) {
	cacheKey := fmt.Sprintf("%s:details:%s", kpiCachePrefix, teacherID)
	var cached dto.TeacherKpiDetailsResponse
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	settings, err := s.settings.ListMetricSettings(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load metric settings")
	}

	bundle, err := s.LoadBundle(ctx, *teacher)
	if err != nil {
		return nil, false, err
	}

	values := s.calculator.CalculateAll(bundle, settings)
	overall := CompositeScore(values, settings)

	resp := &dto.TeacherKpiDetailsResponse{
		TeacherID:    teacher.ID,
		Metrics:      make(map[models.MetricKey]dto.TeacherKpiMetricDetail, len(settings)),
		OverallScore: roundTo(overall, 2),
		RawData:      make(map[models.MetricKey]float64, len(values)),
	}
	for _, setting := range settings {
		detail := dto.TeacherKpiMetricDetail{Weight: setting.Weight, IsActive: setting.Active}
		if value, ok := values[setting.Key]; ok {
			detail.Value = value.Legacy()
		} else {
			detail.Value = models.Unavailable().Legacy()
		}
		resp.Metrics[setting.Key] = detail
	}
	for key, value := range values {
		resp.RawData[key] = value.Legacy()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, 0); err != nil {
			s.logger.Warn("cache kpi details", zap.Error(err))
		}
	}
	return resp, false, nil
}

// CalculateTeacherKPIFromFeedback derives satisfaction, retention and parent
// feedback figures for one period, plus follow-up recommendations.
func (s *KpiService) CalculateTeacherKPIFromFeedback(ctx context.Context, teacherID, period string) (*dto.FeedbackKpiResponse, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	satisfaction, err := s.aggregation.AggregateTeacherEvaluations(ctx, teacherID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate teacher evaluations")
	}
	retention, err := s.aggregation.AggregateStudentRetention(ctx, teacherID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate student retention")
	}
	parent, err := s.aggregation.AggregateParentFeedback(ctx, teacherID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate parent feedback")
	}

	resp := &dto.FeedbackKpiResponse{
		TeacherID:           teacherID,
		Period:              period,
		StudentSatisfaction: satisfaction.Score,
		StudentRetention:    retention.Score,
		ParentFeedback:      meanParentScore(parent),
		FeedbackCount:       satisfaction.ResponseCount + retention.ResponseCount + totalResponses(parent),
	}
	resp.Recommendations = buildRecommendations(resp)
	return resp, nil
}

// AggregateAllKpiMetricsForTeacher returns every feedback-derived aggregation
// for one teacher, keyed by metric tag. The personalized teacher-evaluation
// aggregation is reported under its own TEACHER_EVALUATION key to keep it
// distinct from the parent-sourced satisfaction tag.
func (s *KpiService) AggregateAllKpiMetricsForTeacher(ctx context.Context, teacherID string) (map[string]models.AggregationResult, bool, error) {
	cacheKey := fmt.Sprintf("%s:aggregations:%s", kpiCachePrefix, teacherID)
	var cached map[string]models.AggregationResult
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	results := make(map[string]models.AggregationResult)
	retention, err := s.aggregation.AggregateStudentRetention(ctx, teacherID, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate student retention")
	}
	results[models.TagStudentRetention] = retention

	parent, err := s.aggregation.AggregateParentFeedback(ctx, teacherID, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate parent feedback")
	}
	for tag, result := range parent {
		results[tag] = result
	}

	evaluation, err := s.aggregation.AggregateTeacherEvaluations(ctx, teacherID, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate teacher evaluations")
	}
	evaluation.MetricTag = "TEACHER_EVALUATION"
	results[evaluation.MetricTag] = evaluation

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, results, 0); err != nil {
			s.logger.Warn("cache kpi aggregations", zap.Error(err))
		}
	}
	return results, false, nil
}

// History returns persisted snapshots for one teacher, newest first.
func (s *KpiService) History(ctx context.Context, teacherID string, limit int) ([]dto.SnapshotResponse, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	snapshots, err := s.snapshots.ListByTeacher(ctx, teacherID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kpi history")
	}
	out := make([]dto.SnapshotResponse, len(snapshots))
	for i, snap := range snapshots {
		out[i] = dto.SnapshotResponse{
			TeacherID:    snap.TeacherID,
			OverallScore: snap.OverallScore,
			Metrics:      snap.Metrics,
			Trigger:      snap.Trigger,
			CalculatedAt: snap.CalculatedAt,
		}
	}
	return out, nil
}

// ComputeTeacherSnapshot calculates metrics and the composite score for one
// teacher. Used by the recalculation batch.
func (s *KpiService) ComputeTeacherSnapshot(ctx context.Context, teacher models.Teacher, settings []models.MetricSetting, trigger models.RunTrigger) (*models.KpiSnapshot, error) {
	start := time.Now()
	bundle, err := s.LoadBundle(ctx, teacher)
	if err != nil {
		return nil, err
	}
	values := s.calculator.CalculateAll(bundle, settings)
	overall := CompositeScore(values, settings)
	if s.metrics != nil {
		s.metrics.ObserveTeacherComputation(time.Since(start))
	}
	return &models.KpiSnapshot{
		TeacherID:    teacher.ID,
		OverallScore: roundTo(overall, 2),
		Metrics:      values,
		Trigger:      trigger,
		CalculatedAt: time.Now().UTC(),
	}, nil
}

// InvalidateCache clears all cached KPI payloads after a recalculation.
func (s *KpiService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, kpiCachePrefix+":*"); err != nil {
		s.logger.Warn("invalidate kpi cache", zap.Error(err))
	}
}

// LoadBundle gathers the operational records backing one teacher's metrics.
func (s *KpiService) LoadBundle(ctx context.Context, teacher models.Teacher) (*models.TeacherKpiBundle, error) {
	start := time.Now()
	workloads, err := s.teachers.WorkloadsByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workloads")
	}
	schedules, err := s.teachers.SchedulesByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	plans, err := s.teachers.StudyPlansByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plans")
	}
	lessons, err := s.lessons.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson results")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("kpi_bundle", time.Since(start))
	}
	return &models.TeacherKpiBundle{
		Teacher:       teacher,
		Workloads:     workloads,
		Schedules:     schedules,
		StudyPlans:    plans,
		LessonResults: lessons,
	}, nil
}

func meanParentScore(results map[string]models.AggregationResult) int {
	var sum, count int
	for _, result := range results {
		if result.ResponseCount == 0 {
			continue
		}
		sum += result.Score
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}

func totalResponses(results map[string]models.AggregationResult) int {
	total := 0
	for _, result := range results {
		total += result.ResponseCount
	}
	return total
}

func buildRecommendations(resp *dto.FeedbackKpiResponse) []string {
	var recs []string
	if resp.FeedbackCount < minFeedbackSamples {
		recs = append(recs, "Feedback volume is too low for a reliable picture; encourage survey participation.")
	}
	if resp.StudentSatisfaction > 0 && resp.StudentSatisfaction < positiveThreshold {
		recs = append(recs, "Student evaluations trend low; schedule a classroom observation and follow-up.")
	}
	if resp.StudentRetention > 0 && resp.StudentRetention < positiveThreshold {
		recs = append(recs, "Retention signals are weak; review student engagement in this teacher's groups.")
	}
	if resp.ParentFeedback > 0 && resp.ParentFeedback < positiveThreshold {
		recs = append(recs, "Parent feedback is below target; consider a parent communication plan.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Feedback indicators are healthy; keep current practices.")
	}
	return recs
}

func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
