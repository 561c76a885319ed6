package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/models"
	"github.com/b1411/abai-kpi-api/internal/repository"
)

type mockFeedbackRepo struct {
	templates []models.FeedbackTemplate
	responses []models.FeedbackResponse

	lastTemplateFilter repository.TemplateFilter
	lastResponseFilter repository.ResponseFilter
}

func (m *mockFeedbackRepo) ListTemplates(ctx context.Context, filter repository.TemplateFilter) ([]models.FeedbackTemplate, error) {
	m.lastTemplateFilter = filter
	return m.templates, nil
}

func (m *mockFeedbackRepo) ListResponses(ctx context.Context, filter repository.ResponseFilter) ([]models.FeedbackResponse, error) {
	m.lastResponseFilter = filter
	return m.responses, nil
}

func retentionTemplate() models.FeedbackTemplate {
	tag := models.TagStudentRetention
	return models.FeedbackTemplate{
		ID:   "tpl1",
		Name: "student_retention_survey",
		Role: string(models.RoleStudent),
		Questions: models.QuestionList{
			{ID: "q1", Type: models.QuestionRating1To5, KpiMetric: &tag},
		},
	}
}

func ratingResponse(id string, rating int) models.FeedbackResponse {
	return models.FeedbackResponse{
		ID:         id,
		TemplateID: "tpl1",
		Answers:    models.AnswerMap{"q1": float64(rating)},
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	result := svc.Aggregate(nil, []models.FeedbackTemplate{retentionTemplate()}, models.TagStudentRetention, "")
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, 0, result.ResponseCount)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Breakdown)
}

func TestAggregateTenTopRatings(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	responses := make([]models.FeedbackResponse, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, ratingResponse(string(rune('a'+i)), 5))
	}
	result := svc.Aggregate(responses, []models.FeedbackTemplate{retentionTemplate()}, models.TagStudentRetention, "")

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 10, result.ResponseCount)
	assert.Equal(t, 10, result.PositiveResponses)
	assert.Equal(t, 1.0, result.Confidence)
	assert.InDelta(t, 100.0, result.Breakdown["q1"], 0.0001)
}

func TestAggregateConfidenceGrowsWithVolume(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())
	templates := []models.FeedbackTemplate{retentionTemplate()}

	small := svc.Aggregate([]models.FeedbackResponse{
		ratingResponse("a", 4), ratingResponse("b", 4),
	}, templates, models.TagStudentRetention, "")

	large := svc.Aggregate([]models.FeedbackResponse{
		ratingResponse("a", 4), ratingResponse("b", 4), ratingResponse("c", 4),
		ratingResponse("d", 4), ratingResponse("e", 4), ratingResponse("f", 4),
	}, templates, models.TagStudentRetention, "")

	assert.Greater(t, large.Confidence, small.Confidence)
	assert.LessOrEqual(t, large.Confidence, 1.0)
	assert.GreaterOrEqual(t, small.Confidence, 0.0)
}

func TestAggregateWeightedMean(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	tag := models.TagStudentRetention
	heavy, light := 3.0, 1.0
	tpl := models.FeedbackTemplate{
		ID:   "tpl1",
		Role: string(models.RoleStudent),
		Questions: models.QuestionList{
			{ID: "q1", Type: models.QuestionRating1To5, KpiMetric: &tag, Weight: &heavy},
			{ID: "q2", Type: models.QuestionRating1To5, KpiMetric: &tag, Weight: &light},
		},
	}
	resp := models.FeedbackResponse{
		ID:         "r1",
		TemplateID: "tpl1",
		Answers:    models.AnswerMap{"q1": float64(5), "q2": float64(1)},
	}

	result := svc.Aggregate([]models.FeedbackResponse{resp}, []models.FeedbackTemplate{tpl}, tag, "")
	// (100*3 + 0*1) / 4 = 75
	assert.Equal(t, 75, result.Score)
	assert.Equal(t, 1, result.ResponseCount)
}

func TestAggregateSkipsInvalidAnswers(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	responses := []models.FeedbackResponse{
		ratingResponse("a", 5),
		{ID: "b", TemplateID: "tpl1", Answers: models.AnswerMap{"q1": float64(99)}},
		{ID: "c", TemplateID: "tpl1", Answers: models.AnswerMap{"q1": "five"}},
	}
	result := svc.Aggregate(responses, []models.FeedbackTemplate{retentionTemplate()}, models.TagStudentRetention, "")

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 1, result.ResponseCount)
}

func TestAggregateSkipsNonRelevantQuestions(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	tag := models.TagStudentRetention
	notRelevant := false
	tpl := retentionTemplate()
	tpl.Questions = append(tpl.Questions, models.Question{
		ID: "q2", Type: models.QuestionRating1To5, KpiMetric: &tag, IsKpiRelevant: &notRelevant,
	})
	resp := models.FeedbackResponse{
		ID:         "r1",
		TemplateID: "tpl1",
		Answers:    models.AnswerMap{"q1": float64(5), "q2": float64(1)},
	}

	result := svc.Aggregate([]models.FeedbackResponse{resp}, []models.FeedbackTemplate{tpl}, tag, "")
	assert.Equal(t, 100, result.Score)
}

func TestAggregateTeacherFilterOnQuestions(t *testing.T) {
	svc := NewFeedbackAggregationService(&mockFeedbackRepo{}, 90, zap.NewNop())

	tag := models.TagTeacherSatisfaction
	mine, other := "t1", "t2"
	tpl := models.FeedbackTemplate{
		ID:   "tpl1",
		Role: string(models.RoleStudent),
		Questions: models.QuestionList{
			{ID: "q1", Type: models.QuestionRating1To5, KpiMetric: &tag, TeacherID: &mine},
			{ID: "q2", Type: models.QuestionRating1To5, KpiMetric: &tag, TeacherID: &other},
		},
	}
	resp := models.FeedbackResponse{
		ID:         "r1",
		TemplateID: "tpl1",
		Answers:    models.AnswerMap{"q1": float64(5), "q2": float64(1)},
	}

	result := svc.Aggregate([]models.FeedbackResponse{resp}, []models.FeedbackTemplate{tpl}, tag, "t1")
	assert.Equal(t, 100, result.Score)
	assert.Len(t, result.Breakdown, 1)
}

func TestAggregateStudentRetentionFiltersByTeacher(t *testing.T) {
	other := "someone-else"
	repo := &mockFeedbackRepo{
		templates: []models.FeedbackTemplate{retentionTemplate()},
		responses: []models.FeedbackResponse{
			ratingResponse("a", 5),
			{ID: "b", TemplateID: "tpl1", Answers: models.AnswerMap{"q1": float64(1)}, AboutTeacherID: &other},
		},
	}
	svc := NewFeedbackAggregationService(repo, 90, zap.NewNop())

	result, err := svc.AggregateStudentRetention(context.Background(), "t1", "")
	require.NoError(t, err)
	// The generic response stays in scope; the one about another teacher drops.
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 1, result.ResponseCount)
}

func TestResponsesForPeriodOverridesWindow(t *testing.T) {
	repo := &mockFeedbackRepo{templates: []models.FeedbackTemplate{retentionTemplate()}}
	svc := NewFeedbackAggregationService(repo, 90, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	_, err := svc.AggregateStudentRetention(context.Background(), "t1", "2026-q1")
	require.NoError(t, err)
	assert.Equal(t, "2026-q1", repo.lastResponseFilter.Period)
	assert.True(t, repo.lastResponseFilter.SubmittedAfter.IsZero())

	_, err = svc.AggregateStudentRetention(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Empty(t, repo.lastResponseFilter.Period)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), repo.lastResponseFilter.SubmittedAfter)
	assert.True(t, repo.lastResponseFilter.CompletedOnly)
}

func TestAggregateParentFeedbackCoversAllTags(t *testing.T) {
	repo := &mockFeedbackRepo{}
	svc := NewFeedbackAggregationService(repo, 90, zap.NewNop())

	results, err := svc.AggregateParentFeedback(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Contains(t, results, models.TagTeacherSatisfaction)
	assert.Contains(t, results, models.TagTeachingQuality)
	assert.Contains(t, results, models.TagOverallExperience)
}

func TestAggregateTeacherEvaluationsUsesPersonalizedTemplates(t *testing.T) {
	repo := &mockFeedbackRepo{}
	svc := NewFeedbackAggregationService(repo, 90, zap.NewNop())

	_, err := svc.AggregateTeacherEvaluations(context.Background(), "t1", "")
	require.NoError(t, err)
	assert.Equal(t, teacherEvaluationPrefix, repo.lastTemplateFilter.NamePrefix)
	assert.Equal(t, string(models.RoleStudent), repo.lastTemplateFilter.Role)
}
