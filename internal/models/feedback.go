package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RespondentRole identifies who submitted a feedback response.
type RespondentRole string

const (
	RoleStudent RespondentRole = "STUDENT"
	RoleParent  RespondentRole = "PARENT"
)

// QuestionType tags how a question's raw answer must be interpreted.
type QuestionType string

const (
	QuestionYesNo          QuestionType = "YES_NO"
	QuestionRating1To5     QuestionType = "RATING_1_5"
	QuestionRating1To10    QuestionType = "RATING_1_10"
	QuestionSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionEmotionalScale QuestionType = "EMOTIONAL_SCALE"
	QuestionText           QuestionType = "TEXT"
)

// Question is one typed entry of a feedback template. KpiMetric ties the
// question to a KPI aggregation tag; TeacherID scopes personalized forms.
type Question struct {
	ID              string       `json:"id"`
	Text            string       `json:"text"`
	Type            QuestionType `json:"type"`
	KpiMetric       *string      `json:"kpiMetric,omitempty"`
	Weight          *float64     `json:"weight,omitempty"`
	TeacherID       *string      `json:"teacherId,omitempty"`
	IsKpiRelevant   *bool        `json:"isKpiRelevant,omitempty"`
	Options         []string     `json:"options,omitempty"`
	PositiveOptions []int        `json:"positiveOptions,omitempty"`
}

// QuestionList persists the template question set as JSONB.
type QuestionList []Question

// Value marshals the question list for persistence.
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		q = QuestionList{}
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal question list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the question list.
func (q *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*q = QuestionList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for QuestionList", value)
	}
	if len(data) == 0 {
		*q = QuestionList{}
		return nil
	}
	if err := json.Unmarshal(data, q); err != nil {
		return fmt.Errorf("unmarshal question list: %w", err)
	}
	return nil
}

// FeedbackTemplate defines a form whose typed questions may feed KPI metrics.
// Templates are read-only inputs to the aggregation pipeline.
type FeedbackTemplate struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Role            string       `db:"role" json:"role"`
	Questions       QuestionList `db:"questions" json:"questions"`
	HasKpiQuestions bool         `db:"has_kpi_questions" json:"has_kpi_questions"`
	KpiMetrics      StringSlice  `db:"kpi_metrics" json:"kpi_metrics"`
	Active          bool         `db:"active" json:"active"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// AnswerMap holds question-id → raw answer value as submitted.
type AnswerMap map[string]interface{}

// Value marshals answers for persistence.
func (a AnswerMap) Value() (driver.Value, error) {
	if a == nil {
		a = AnswerMap{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal answer map: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the answer map.
func (a *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*a = AnswerMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AnswerMap", value)
	}
	if len(data) == 0 {
		*a = AnswerMap{}
		return nil
	}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("unmarshal answer map: %w", err)
	}
	return nil
}

// StringSlice persists a list of strings as JSONB.
type StringSlice []string

// Value marshals the slice for persistence.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal string slice: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the slice.
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringSlice", value)
	}
	if len(data) == 0 {
		*s = StringSlice{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal string slice: %w", err)
	}
	return nil
}

// FeedbackResponse is an immutable submitted form. Answers are keyed by
// question id within the referenced template.
type FeedbackResponse struct {
	ID             string         `db:"id" json:"id"`
	RespondentID   string         `db:"respondent_id" json:"respondent_id"`
	Role           RespondentRole `db:"role" json:"role"`
	TemplateID     string         `db:"template_id" json:"template_id"`
	Answers        AnswerMap      `db:"answers" json:"answers"`
	IsCompleted    bool           `db:"is_completed" json:"is_completed"`
	AboutTeacherID *string        `db:"about_teacher_id" json:"about_teacher_id,omitempty"`
	Period         string         `db:"period" json:"period"`
	SubmittedAt    time.Time      `db:"submitted_at" json:"submitted_at"`
}
