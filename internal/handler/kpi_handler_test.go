package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	appErrors "github.com/b1411/abai-kpi-api/pkg/errors"
	"github.com/b1411/abai-kpi-api/pkg/response"
)

type kpiReadServiceMock struct {
	details    *dto.TeacherKpiDetailsResponse
	detailsHit bool
	feedback   *dto.FeedbackKpiResponse
	history    []dto.SnapshotResponse
	err        error

	lastPeriod string
}

func (m *kpiReadServiceMock) GetTeacherKpiDetails(ctx context.Context, teacherID string) (*dto.TeacherKpiDetailsResponse, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return m.details, m.detailsHit, nil
}

func (m *kpiReadServiceMock) CalculateTeacherKPIFromFeedback(ctx context.Context, teacherID, period string) (*dto.FeedbackKpiResponse, error) {
	m.lastPeriod = period
	if m.err != nil {
		return nil, m.err
	}
	return m.feedback, nil
}

func (m *kpiReadServiceMock) AggregateAllKpiMetricsForTeacher(ctx context.Context, teacherID string) (map[string]models.AggregationResult, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return map[string]models.AggregationResult{}, false, nil
}

func (m *kpiReadServiceMock) History(ctx context.Context, teacherID string, limit int) ([]dto.SnapshotResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

type recalculationServiceMock struct {
	summary *dto.RecalculationSummary
	err     error
}

func (m *recalculationServiceMock) ManualRecalculation(ctx context.Context) (*dto.RecalculationSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func kpiTestContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestKpiHandlerDetails(t *testing.T) {
	svc := &kpiReadServiceMock{
		details:    &dto.TeacherKpiDetailsResponse{TeacherID: "t1", OverallScore: 90},
		detailsHit: true,
	}
	handler := NewKpiHandler(svc, &recalculationServiceMock{})

	c, w := kpiTestContext(t, http.MethodGet, "/teachers/t1/kpi")
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Details(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "hit", envelope.Meta["cache"])
}

func TestKpiHandlerDetailsNotFound(t *testing.T) {
	svc := &kpiReadServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "teacher not found")}
	handler := NewKpiHandler(svc, &recalculationServiceMock{})

	c, w := kpiTestContext(t, http.MethodGet, "/teachers/ghost/kpi")
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	handler.Details(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, envelope.Error.Code)
}

func TestKpiHandlerFeedbackPassesPeriod(t *testing.T) {
	svc := &kpiReadServiceMock{feedback: &dto.FeedbackKpiResponse{TeacherID: "t1"}}
	handler := NewKpiHandler(svc, &recalculationServiceMock{})

	c, w := kpiTestContext(t, http.MethodGet, "/teachers/t1/kpi/feedback?period=2026-q1")
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Feedback(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-q1", svc.lastPeriod)
}

func TestKpiHandlerRecalculate(t *testing.T) {
	scheduler := &recalculationServiceMock{summary: &dto.RecalculationSummary{SuccessCount: 12}}
	handler := NewKpiHandler(&kpiReadServiceMock{}, scheduler)

	c, w := kpiTestContext(t, http.MethodPost, "/kpi/recalculate")
	handler.Recalculate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_count":12`)
}

func TestKpiHandlerRecalculateBusy(t *testing.T) {
	scheduler := &recalculationServiceMock{err: appErrors.ErrRunInProgress}
	handler := NewKpiHandler(&kpiReadServiceMock{}, scheduler)

	c, w := kpiTestContext(t, http.MethodPost, "/kpi/recalculate")
	handler.Recalculate(c)

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrRunInProgress.Code, envelope.Error.Code)
}

func TestKpiHandlerHistory(t *testing.T) {
	svc := &kpiReadServiceMock{history: []dto.SnapshotResponse{{TeacherID: "t1", OverallScore: 88}}}
	handler := NewKpiHandler(svc, &recalculationServiceMock{})

	c, w := kpiTestContext(t, http.MethodGet, "/teachers/t1/kpi/history?limit=5")
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"overall_score":88`)
}
