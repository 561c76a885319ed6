package service

import (
	"math"

	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// MetricCalculator computes individual KPI metrics from a teacher's
// operational records. Feedback-derived metrics live in the aggregation
// service; everything here reads workload, schedule and lesson data only.
type MetricCalculator struct {
	logger *zap.Logger
}

// NewMetricCalculator constructs a MetricCalculator.
func NewMetricCalculator(logger *zap.Logger) *MetricCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricCalculator{logger: logger}
}

// Calculate resolves one metric for the bundled teacher. Unknown keys and
// metrics whose data source is not wired yet yield Unavailable. A failure
// computing one metric is contained to that metric: the caller keeps going.
func (c *MetricCalculator) Calculate(bundle *models.TeacherKpiBundle, key models.MetricKey) (value models.MetricValue) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("metric computation failed",
				zap.String("teacher_id", bundle.Teacher.ID),
				zap.String("metric", string(key)),
				zap.Any("panic", r))
			value = models.Unavailable()
		}
	}()

	switch key {
	case models.MetricWorkloadCompliance:
		return c.workloadCompliance(bundle.Workloads)
	case models.MetricClassAttendance:
		return c.classAttendance(bundle.LessonResults)
	case models.MetricTeachingQuality:
		return c.teachingQuality(bundle)
	case models.MetricStudentSatisfaction, models.MetricProfessionalDevelopment:
		// Deferred pending real data sources.
		return models.Unavailable()
	default:
		return models.Unavailable()
	}
}

// CalculateAll resolves every metric the settings list as active, keyed by
// metric. Inactive metrics are skipped entirely.
func (c *MetricCalculator) CalculateAll(bundle *models.TeacherKpiBundle, settings []models.MetricSetting) models.MetricValueMap {
	values := make(models.MetricValueMap, len(settings))
	for _, setting := range settings {
		if !setting.Active {
			continue
		}
		values[setting.Key] = c.Calculate(bundle, setting.Key)
	}
	return values
}

// workloadCompliance compares delivered against planned hours across all
// workload records. A teacher with no planned hours scores zero rather than
// Unavailable: an empty plan is a staffing problem, not missing data.
func (c *MetricCalculator) workloadCompliance(workloads []models.WorkloadRecord) models.MetricValue {
	var standard, actual float64
	for _, w := range workloads {
		standard += w.StandardHours
		actual += w.ActualHours
	}
	if standard == 0 {
		return models.Available(0)
	}
	return models.Available(math.Min(100, actual/standard*100))
}

// classAttendance is the share of attendance-marked lessons where the student
// was present. Without a single marked lesson there is no signal at all.
func (c *MetricCalculator) classAttendance(results []models.LessonResult) models.MetricValue {
	var marked, present int
	for _, r := range results {
		if r.Attendance == nil {
			continue
		}
		marked++
		if *r.Attendance {
			present++
		}
	}
	if marked == 0 {
		return models.Unavailable()
	}
	return models.Available(float64(present) / float64(marked) * 100)
}

// teachingQuality is a placeholder heuristic built from breadth of subjects
// and timetable presence, not a true quality measure.
func (c *MetricCalculator) teachingQuality(bundle *models.TeacherKpiBundle) models.MetricValue {
	subjects := make(map[string]struct{})
	for _, p := range bundle.StudyPlans {
		subjects[p.SubjectID] = struct{}{}
	}
	for _, w := range bundle.Workloads {
		subjects[w.SubjectID] = struct{}{}
	}

	score := 40.0
	score += math.Min(float64(len(subjects))*15, 40)
	score += math.Min(float64(len(bundle.Schedules))*5, 20)
	return models.Available(math.Min(100, score))
}
