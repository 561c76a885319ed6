package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// TemplateFilter scopes KPI-relevant template lookups.
type TemplateFilter struct {
	Role       string
	MetricTag  string
	NamePrefix string
}

// ResponseFilter scopes feedback response queries. The aggregation window
// (completed responses within the trailing N days) is applied here, on the
// query side, never inside the aggregator.
type ResponseFilter struct {
	Role           models.RespondentRole
	TemplateIDs    []string
	SubmittedAfter time.Time
	Period         string
	CompletedOnly  bool
}

// FeedbackRepository reads immutable feedback responses and their templates.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// ListTemplates returns active templates matching the filter. MetricTag uses
// JSONB containment against the template's kpi_metrics list.
func (r *FeedbackRepository) ListTemplates(ctx context.Context, filter TemplateFilter) ([]models.FeedbackTemplate, error) {
	base := `SELECT id, name, role, questions, has_kpi_questions, kpi_metrics, active, created_at FROM feedback_templates WHERE active = TRUE AND has_kpi_questions = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.MetricTag != "" {
		conditions = append(conditions, fmt.Sprintf("kpi_metrics @> $%d", len(args)+1))
		args = append(args, fmt.Sprintf(`["%s"]`, filter.MetricTag))
	}
	if filter.NamePrefix != "" {
		conditions = append(conditions, fmt.Sprintf("name LIKE $%d", len(args)+1))
		args = append(args, filter.NamePrefix+"%")
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"

	var templates []models.FeedbackTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("list feedback templates: %w", err)
	}
	return templates, nil
}

// ListResponses returns feedback responses matching the filter.
func (r *FeedbackRepository) ListResponses(ctx context.Context, filter ResponseFilter) ([]models.FeedbackResponse, error) {
	base := `SELECT id, respondent_id, role, template_id, answers, is_completed, about_teacher_id, period, submitted_at FROM feedback_responses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if len(filter.TemplateIDs) > 0 {
		placeholders := make([]string, len(filter.TemplateIDs))
		for i, id := range filter.TemplateIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("template_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if !filter.SubmittedAfter.IsZero() {
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", len(args)+1))
		args = append(args, filter.SubmittedAfter)
	}
	if filter.Period != "" {
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)+1))
		args = append(args, filter.Period)
	}
	if filter.CompletedOnly {
		conditions = append(conditions, "is_completed = TRUE")
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at DESC"

	var responses []models.FeedbackResponse
	if err := r.db.SelectContext(ctx, &responses, query, args...); err != nil {
		return nil, fmt.Errorf("list feedback responses: %w", err)
	}
	return responses, nil
}
