package dto

import (
	"time"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// TeacherKpiMetricDetail is one weighted entry of the KPI details payload.
type TeacherKpiMetricDetail struct {
	Value    float64 `json:"value"`
	Weight   float64 `json:"weight"`
	IsActive bool    `json:"is_active"`
}

// TeacherKpiDetailsResponse mirrors the legacy details contract. RawData keeps
// the historical -1 sentinel for unavailable metrics; everywhere else the
// tagged MetricValue is used.
type TeacherKpiDetailsResponse struct {
	TeacherID    string                                      `json:"teacher_id"`
	Metrics      map[models.MetricKey]TeacherKpiMetricDetail `json:"metrics"`
	OverallScore float64                                     `json:"overall_score"`
	RawData      map[models.MetricKey]float64                `json:"raw_data"`
}

// FeedbackKpiResponse carries feedback-derived KPI figures for one period.
type FeedbackKpiResponse struct {
	TeacherID           string   `json:"teacher_id"`
	Period              string   `json:"period"`
	StudentSatisfaction int      `json:"student_satisfaction"`
	StudentRetention    int      `json:"student_retention"`
	ParentFeedback      int      `json:"parent_feedback"`
	FeedbackCount       int      `json:"feedback_count"`
	Recommendations     []string `json:"recommendations"`
}

// RecalculationSummary reports the outcome of a manual or scheduled run.
type RecalculationSummary struct {
	SuccessCount     int      `json:"success_count"`
	ErrorCount       int      `json:"error_count"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Errors           []string `json:"errors"`
}

// MetricSettingRequest is one entry of a settings update payload.
type MetricSettingRequest struct {
	Key              models.MetricKey      `json:"key" validate:"required"`
	Weight           float64               `json:"weight" validate:"min=0,max=100"`
	Target           float64               `json:"target" validate:"min=0,max=100"`
	SuccessThreshold float64               `json:"success_threshold" validate:"min=0,max=100"`
	WarningThreshold float64               `json:"warning_threshold" validate:"min=0,max=100"`
	Active           bool                  `json:"active"`
	Category         models.MetricCategory `json:"category" validate:"omitempty,oneof=constant periodic"`
}

// UpdateMetricSettingsRequest replaces the metric settings set atomically.
type UpdateMetricSettingsRequest struct {
	Settings []MetricSettingRequest `json:"settings" validate:"required,min=1,dive"`
}

// UpdateOrganizationSettingsRequest adjusts org-wide recalculation policy.
type UpdateOrganizationSettingsRequest struct {
	CalculationPeriod     models.CalculationPeriod `json:"calculation_period" validate:"required,oneof=daily weekly monthly quarterly"`
	AutoNotifications     bool                     `json:"auto_notifications"`
	NotificationThreshold float64                  `json:"notification_threshold" validate:"min=0,max=100"`
}

// SnapshotResponse exposes a persisted KPI snapshot.
type SnapshotResponse struct {
	TeacherID    string                `json:"teacher_id"`
	OverallScore float64               `json:"overall_score"`
	Metrics      models.MetricValueMap `json:"metrics"`
	Trigger      models.RunTrigger     `json:"trigger"`
	CalculatedAt time.Time             `json:"calculated_at"`
}
