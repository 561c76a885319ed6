package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MetricKey is the stable identifier of a weighted KPI component. Display
// names belong to the presentation layer; the core never matches on them.
type MetricKey string

const (
	MetricWorkloadCompliance      MetricKey = "workload_compliance"
	MetricClassAttendance         MetricKey = "class_attendance"
	MetricTeachingQuality         MetricKey = "teaching_quality"
	MetricStudentSatisfaction     MetricKey = "student_satisfaction"
	MetricProfessionalDevelopment MetricKey = "professional_development"
)

// Feedback aggregation tags carried on template questions.
const (
	TagStudentRetention    = "STUDENT_RETENTION"
	TagTeacherSatisfaction = "TEACHER_SATISFACTION"
	TagTeachingQuality     = "TEACHING_QUALITY"
	TagOverallExperience   = "OVERALL_EXPERIENCE"
)

// MetricValue is the tagged result of one metric computation. An unavailable
// metric is distinct from a computed zero and never enters weighted sums.
type MetricValue struct {
	Score     float64 `json:"score"`
	Available bool    `json:"available"`
}

// Available wraps a computed score.
func Available(score float64) MetricValue {
	return MetricValue{Score: score, Available: true}
}

// Unavailable marks a metric with no usable data source.
func Unavailable() MetricValue {
	return MetricValue{}
}

// Legacy returns the historical sentinel encoding (-1 for unavailable) used
// on the raw-data API surface only.
func (v MetricValue) Legacy() float64 {
	if !v.Available {
		return -1
	}
	return v.Score
}

// MetricCategory distinguishes constant from periodically recomputed metrics.
type MetricCategory string

const (
	MetricCategoryConstant MetricCategory = "constant"
	MetricCategoryPeriodic MetricCategory = "periodic"
)

// MetricSetting configures one weighted component of the composite score.
type MetricSetting struct {
	ID               string         `db:"id" json:"id"`
	Key              MetricKey      `db:"metric_key" json:"key"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	Weight           float64        `db:"weight" json:"weight"`
	Target           float64        `db:"target" json:"target"`
	SuccessThreshold float64        `db:"success_threshold" json:"success_threshold"`
	WarningThreshold float64        `db:"warning_threshold" json:"warning_threshold"`
	Active           bool           `db:"active" json:"active"`
	Category         MetricCategory `db:"category" json:"category"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// CalculationPeriod selects the wall-clock recalculation cadence.
type CalculationPeriod string

const (
	PeriodDaily     CalculationPeriod = "daily"
	PeriodWeekly    CalculationPeriod = "weekly"
	PeriodMonthly   CalculationPeriod = "monthly"
	PeriodQuarterly CalculationPeriod = "quarterly"
)

// OrganizationKpiSettings holds org-wide recalculation policy.
type OrganizationKpiSettings struct {
	ID                    string            `db:"id" json:"id"`
	CalculationPeriod     CalculationPeriod `db:"calculation_period" json:"calculation_period"`
	AutoNotifications     bool              `db:"auto_notifications" json:"auto_notifications"`
	NotificationThreshold float64           `db:"notification_threshold" json:"notification_threshold"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// AggregationResult is the ephemeral outcome of one feedback aggregation.
// Breakdown maps question id to the mean normalized score of its valid answers.
type AggregationResult struct {
	MetricTag         string             `json:"metric_tag"`
	Score             int                `json:"score"`
	ResponseCount     int                `json:"response_count"`
	PositiveResponses int                `json:"positive_responses"`
	Confidence        float64            `json:"confidence"`
	Breakdown         map[string]float64 `json:"breakdown"`
}

// MetricValueMap persists per-metric scores of a snapshot as JSONB.
type MetricValueMap map[MetricKey]MetricValue

// Value marshals the metric map for persistence.
func (m MetricValueMap) Value() (driver.Value, error) {
	if m == nil {
		m = MetricValueMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metric value map: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the metric map.
func (m *MetricValueMap) Scan(value interface{}) error {
	if value == nil {
		*m = MetricValueMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for MetricValueMap", value)
	}
	if len(data) == 0 {
		*m = MetricValueMap{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal metric value map: %w", err)
	}
	return nil
}

// RunTrigger identifies what started a recalculation run.
type RunTrigger string

const (
	TriggerManual    RunTrigger = "manual"
	TriggerScheduled RunTrigger = "scheduled"
)

// KpiSnapshot is the persisted result of one teacher's recalculation.
type KpiSnapshot struct {
	ID           string         `db:"id" json:"id"`
	TeacherID    string         `db:"teacher_id" json:"teacher_id"`
	OverallScore float64        `db:"overall_score" json:"overall_score"`
	Metrics      MetricValueMap `db:"metrics" json:"metrics"`
	Trigger      RunTrigger     `db:"trigger_kind" json:"trigger"`
	CalculatedAt time.Time      `db:"calculated_at" json:"calculated_at"`
}

// RecalculationRun summarises one batch over all teachers.
type RecalculationRun struct {
	ID           string     `db:"id" json:"id"`
	Trigger      RunTrigger `db:"trigger_kind" json:"trigger"`
	SuccessCount int        `db:"success_count" json:"success_count"`
	ErrorCount   int        `db:"error_count" json:"error_count"`
	DurationMs   int64      `db:"duration_ms" json:"duration_ms"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   time.Time  `db:"finished_at" json:"finished_at"`
}
