package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/models"
	"github.com/b1411/abai-kpi-api/internal/repository"
)

// positiveThreshold marks a normalized answer as a positive signal.
const positiveThreshold = 60.0

// teacherEvaluationPrefix scopes personalized per-teacher evaluation forms.
const teacherEvaluationPrefix = "teacher_evaluation_student_"

// parentFeedbackTags are the metric tags parent forms may contribute to.
var parentFeedbackTags = []string{
	models.TagTeacherSatisfaction,
	models.TagTeachingQuality,
	models.TagOverallExperience,
}

type feedbackReader interface {
	ListTemplates(ctx context.Context, filter repository.TemplateFilter) ([]models.FeedbackTemplate, error)
	ListResponses(ctx context.Context, filter repository.ResponseFilter) ([]models.FeedbackResponse, error)
}

// FeedbackAggregationService turns raw feedback responses into per-metric
// aggregation results. The completed-only trailing-window restriction is a
// query-side concern; Aggregate itself scores whatever it is handed.
type FeedbackAggregationService struct {
	repo       feedbackReader
	windowDays int
	logger     *zap.Logger
	now        func() time.Time
}

// NewFeedbackAggregationService constructs the aggregation service.
func NewFeedbackAggregationService(repo feedbackReader, windowDays int, logger *zap.Logger) *FeedbackAggregationService {
	if windowDays <= 0 {
		windowDays = 90
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackAggregationService{repo: repo, windowDays: windowDays, logger: logger, now: time.Now}
}

// Aggregate computes the weighted mean of all valid answers to questions
// tagged with metricTag. When teacherFilter is non-empty only questions
// associated with that teacher are considered (personalized forms). Questions
// explicitly flagged as not KPI-relevant are skipped.
func (s *FeedbackAggregationService) Aggregate(responses []models.FeedbackResponse, templates []models.FeedbackTemplate, metricTag, teacherFilter string) models.AggregationResult {
	templateIndex := make(map[string]models.FeedbackTemplate, len(templates))
	for _, tpl := range templates {
		templateIndex[tpl.ID] = tpl
	}

	var (
		weightedSum float64
		weightTotal float64
		validCount  int
		positive    int
	)
	perQuestionSum := make(map[string]float64)
	perQuestionCount := make(map[string]int)
	contributing := make(map[string]struct{})

	for _, resp := range responses {
		tpl, ok := templateIndex[resp.TemplateID]
		if !ok {
			continue
		}
		for _, q := range tpl.Questions {
			if q.KpiMetric == nil || *q.KpiMetric != metricTag {
				continue
			}
			if teacherFilter != "" && (q.TeacherID == nil || *q.TeacherID != teacherFilter) {
				continue
			}
			if q.IsKpiRelevant != nil && !*q.IsKpiRelevant {
				continue
			}
			raw, ok := resp.Answers[q.ID]
			if !ok {
				continue
			}
			score, ok := NormalizeAnswer(raw, q)
			if !ok {
				continue
			}

			weight := 1.0
			if q.Weight != nil && *q.Weight > 0 {
				weight = *q.Weight
			}
			weightedSum += score * weight
			weightTotal += weight
			validCount++
			if score >= positiveThreshold {
				positive++
			}
			perQuestionSum[q.ID] += score
			perQuestionCount[q.ID]++
			contributing[resp.ID] = struct{}{}
		}
	}

	result := models.AggregationResult{
		MetricTag:         metricTag,
		ResponseCount:     len(contributing),
		PositiveResponses: positive,
		Breakdown:         make(map[string]float64, len(perQuestionSum)),
	}
	for id, sum := range perQuestionSum {
		result.Breakdown[id] = sum / float64(perQuestionCount[id])
	}
	if weightTotal > 0 {
		result.Score = int(math.Round(weightedSum / weightTotal))
	}
	if validCount > 0 {
		confidence := math.Min(float64(validCount)/10, 1)
		confidence += math.Min(float64(validCount)/float64(len(responses)), 1) * 0.2
		result.Confidence = math.Round(math.Min(confidence, 1)*100) / 100
	}
	return result
}

// AggregateStudentRetention scores the STUDENT_RETENTION tag from completed
// student responses. An empty period means the trailing window; a period
// label restricts aggregation to that label instead.
func (s *FeedbackAggregationService) AggregateStudentRetention(ctx context.Context, teacherID, period string) (models.AggregationResult, error) {
	return s.aggregateTag(ctx, models.RoleStudent, models.TagStudentRetention, teacherID, "", period)
}

// AggregateParentFeedback scores each parent-feedback tag independently.
func (s *FeedbackAggregationService) AggregateParentFeedback(ctx context.Context, teacherID, period string) (map[string]models.AggregationResult, error) {
	results := make(map[string]models.AggregationResult, len(parentFeedbackTags))
	for _, tag := range parentFeedbackTags {
		result, err := s.aggregateTag(ctx, models.RoleParent, tag, teacherID, "", period)
		if err != nil {
			return nil, err
		}
		results[tag] = result
	}
	return results, nil
}

// AggregateTeacherEvaluations scores personalized teacher-evaluation forms:
// student responses against templates named teacher_evaluation_student_*,
// restricted to questions associated with the given teacher.
func (s *FeedbackAggregationService) AggregateTeacherEvaluations(ctx context.Context, teacherID, period string) (models.AggregationResult, error) {
	templates, err := s.repo.ListTemplates(ctx, repository.TemplateFilter{
		Role:       string(models.RoleStudent),
		NamePrefix: teacherEvaluationPrefix,
	})
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("load evaluation templates: %w", err)
	}
	responses, err := s.responsesFor(ctx, models.RoleStudent, templates, period)
	if err != nil {
		return models.AggregationResult{}, err
	}
	return s.Aggregate(responses, templates, models.TagTeacherSatisfaction, teacherID), nil
}

func (s *FeedbackAggregationService) aggregateTag(ctx context.Context, role models.RespondentRole, tag, teacherID, namePrefix, period string) (models.AggregationResult, error) {
	templates, err := s.repo.ListTemplates(ctx, repository.TemplateFilter{
		Role:       string(role),
		MetricTag:  tag,
		NamePrefix: namePrefix,
	})
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("load templates for %s: %w", tag, err)
	}
	responses, err := s.responsesFor(ctx, role, templates, period)
	if err != nil {
		return models.AggregationResult{}, err
	}
	responses = filterAboutTeacher(responses, teacherID)
	return s.Aggregate(responses, templates, tag, ""), nil
}

func (s *FeedbackAggregationService) responsesFor(ctx context.Context, role models.RespondentRole, templates []models.FeedbackTemplate, period string) ([]models.FeedbackResponse, error) {
	if len(templates) == 0 {
		return nil, nil
	}
	ids := make([]string, len(templates))
	for i, tpl := range templates {
		ids[i] = tpl.ID
	}
	filter := repository.ResponseFilter{
		Role:          role,
		TemplateIDs:   ids,
		CompletedOnly: true,
	}
	if period != "" {
		filter.Period = period
	} else {
		filter.SubmittedAfter = s.now().AddDate(0, 0, -s.windowDays)
	}
	responses, err := s.repo.ListResponses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	return responses, nil
}

// filterAboutTeacher keeps responses addressed to the teacher. Responses from
// generic forms with no teacher reference stay in scope.
func filterAboutTeacher(responses []models.FeedbackResponse, teacherID string) []models.FeedbackResponse {
	if teacherID == "" {
		return responses
	}
	filtered := make([]models.FeedbackResponse, 0, len(responses))
	for _, resp := range responses {
		if resp.AboutTeacherID == nil || *resp.AboutTeacherID == teacherID {
			filtered = append(filtered, resp)
		}
	}
	return filtered
}
