package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	appErrors "github.com/b1411/abai-kpi-api/pkg/errors"
	"github.com/b1411/abai-kpi-api/pkg/response"
)

type kpiSettingsService interface {
	List(ctx context.Context) ([]models.MetricSetting, error)
	Update(ctx context.Context, req dto.UpdateMetricSettingsRequest) ([]models.MetricSetting, error)
	GetOrganization(ctx context.Context) (*models.OrganizationKpiSettings, error)
	UpdateOrganization(ctx context.Context, req dto.UpdateOrganizationSettingsRequest) (*models.OrganizationKpiSettings, error)
}

// KpiSettingsHandler exposes metric weighting and organization policy routes.
type KpiSettingsHandler struct {
	settings kpiSettingsService
}

// NewKpiSettingsHandler constructs a new KpiSettingsHandler.
func NewKpiSettingsHandler(settings kpiSettingsService) *KpiSettingsHandler {
	return &KpiSettingsHandler{settings: settings}
}

// List godoc
// @Summary List metric settings
// @Tags KPI Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /kpi/settings [get]
func (h *KpiSettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Replace metric settings
// @Description Active weights must sum to 100; otherwise the update is rejected.
// @Tags KPI Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateMetricSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /kpi/settings [put]
func (h *KpiSettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateMetricSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// GetOrganization godoc
// @Summary Get organization KPI policy
// @Tags KPI Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /kpi/settings/organization [get]
func (h *KpiSettingsHandler) GetOrganization(c *gin.Context) {
	settings, err := h.settings.GetOrganization(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateOrganization godoc
// @Summary Update organization KPI policy
// @Tags KPI Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateOrganizationSettingsRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Router /kpi/settings/organization [put]
func (h *KpiSettingsHandler) UpdateOrganization(c *gin.Context) {
	var req dto.UpdateOrganizationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid policy payload"))
		return
	}
	settings, err := h.settings.UpdateOrganization(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
