package handler

import (
	"bytes"
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

type kpiSettingsServiceMock struct {
	settings  []models.MetricSetting
	org       *models.OrganizationKpiSettings
	updateErr error
}

func (m *kpiSettingsServiceMock) List(ctx context.Context) ([]models.MetricSetting, error) {
	return m.settings, nil
}

func (m *kpiSettingsServiceMock) Update(ctx context.Context, req dto.UpdateMetricSettingsRequest) ([]models.MetricSetting, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.settings, nil
}

func (m *kpiSettingsServiceMock) GetOrganization(ctx context.Context) (*models.OrganizationKpiSettings, error) {
	return m.org, nil
}

func (m *kpiSettingsServiceMock) UpdateOrganization(ctx context.Context, req dto.UpdateOrganizationSettingsRequest) (*models.OrganizationKpiSettings, error) {
	return &models.OrganizationKpiSettings{
		CalculationPeriod:     req.CalculationPeriod,
		AutoNotifications:     req.AutoNotifications,
		NotificationThreshold: req.NotificationThreshold,
	}, nil
}

func TestKpiSettingsHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKpiSettingsHandler(&kpiSettingsServiceMock{settings: []models.MetricSetting{
		{Key: models.MetricWorkloadCompliance, Weight: 100, Active: true},
	}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/kpi/settings", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "workload_compliance")
}

func TestKpiSettingsHandlerUpdateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKpiSettingsHandler(&kpiSettingsServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/kpi/settings", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKpiSettingsHandlerUpdateInvalidWeights(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKpiSettingsHandler(&kpiSettingsServiceMock{updateErr: appErrors.ErrInvalidWeights})

	body, _ := json.Marshal(dto.UpdateMetricSettingsRequest{Settings: []dto.MetricSettingRequest{
		{Key: models.MetricWorkloadCompliance, Weight: 50, Active: true},
	}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/kpi/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Update(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, envelope.Error.Code)
}

func TestKpiSettingsHandlerUpdateOrganization(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKpiSettingsHandler(&kpiSettingsServiceMock{})

	body, _ := json.Marshal(dto.UpdateOrganizationSettingsRequest{
		CalculationPeriod:     models.PeriodWeekly,
		AutoNotifications:     true,
		NotificationThreshold: 65,
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/kpi/settings/organization", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.UpdateOrganization(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"calculation_period":"weekly"`)
}
