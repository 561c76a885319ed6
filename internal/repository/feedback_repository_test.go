package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b1411/abai-kpi-api/internal/models"
)

func TestFeedbackRepositoryListTemplatesByTag(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	questions := []byte(`[{"id":"q1","type":"RATING_1_5","kpiMetric":"STUDENT_RETENTION"}]`)
	rows := sqlmock.NewRows([]string{"id", "name", "role", "questions", "has_kpi_questions", "kpi_metrics", "active", "created_at"}).
		AddRow("tpl1", "retention_survey", "STUDENT", questions, true, []byte(`["STUDENT_RETENTION"]`), true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, role, questions, has_kpi_questions, kpi_metrics, active, created_at FROM feedback_templates WHERE active = TRUE AND has_kpi_questions = TRUE AND role = $1 AND kpi_metrics @> $2 ORDER BY created_at ASC")).
		WithArgs("STUDENT", `["STUDENT_RETENTION"]`).
		WillReturnRows(rows)

	templates, err := repo.ListTemplates(context.Background(), TemplateFilter{
		Role:      string(models.RoleStudent),
		MetricTag: models.TagStudentRetention,
	})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Len(t, templates[0].Questions, 1)
	assert.Equal(t, models.QuestionRating1To5, templates[0].Questions[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListTemplatesByNamePrefix(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, role, questions, has_kpi_questions, kpi_metrics, active, created_at FROM feedback_templates WHERE active = TRUE AND has_kpi_questions = TRUE AND name LIKE $1 ORDER BY created_at ASC")).
		WithArgs("teacher_evaluation_student_%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role", "questions", "has_kpi_questions", "kpi_metrics", "active", "created_at"}))

	templates, err := repo.ListTemplates(context.Background(), TemplateFilter{NamePrefix: "teacher_evaluation_student_"})
	require.NoError(t, err)
	assert.Empty(t, templates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListResponses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	submittedAfter := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "respondent_id", "role", "template_id", "answers", "is_completed", "about_teacher_id", "period", "submitted_at"}).
		AddRow("r1", "s1", "STUDENT", "tpl1", []byte(`{"q1":5}`), true, nil, "2026-q1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, respondent_id, role, template_id, answers, is_completed, about_teacher_id, period, submitted_at FROM feedback_responses WHERE 1=1 AND role = $1 AND template_id IN ($2, $3) AND submitted_at >= $4 AND is_completed = TRUE ORDER BY submitted_at DESC")).
		WithArgs("STUDENT", "tpl1", "tpl2", submittedAfter).
		WillReturnRows(rows)

	responses, err := repo.ListResponses(context.Background(), ResponseFilter{
		Role:           models.RoleStudent,
		TemplateIDs:    []string{"tpl1", "tpl2"},
		SubmittedAfter: submittedAfter,
		CompletedOnly:  true,
	})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, float64(5), responses[0].Answers["q1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListResponsesByPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, respondent_id, role, template_id, answers, is_completed, about_teacher_id, period, submitted_at FROM feedback_responses WHERE 1=1 AND template_id IN ($1) AND period = $2 AND is_completed = TRUE ORDER BY submitted_at DESC")).
		WithArgs("tpl1", "2026-q1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "respondent_id", "role", "template_id", "answers", "is_completed", "about_teacher_id", "period", "submitted_at"}))

	_, err := repo.ListResponses(context.Background(), ResponseFilter{
		TemplateIDs:   []string{"tpl1"},
		Period:        "2026-q1",
		CompletedOnly: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
