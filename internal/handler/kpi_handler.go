package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	"github.com/b1411/abai-kpi-api/pkg/response"
)

type kpiReadService interface {
	GetTeacherKpiDetails(ctx context.Context, teacherID string) (*dto.TeacherKpiDetailsResponse, bool, error)
	CalculateTeacherKPIFromFeedback(ctx context.Context, teacherID, period string) (*dto.FeedbackKpiResponse, error)
	AggregateAllKpiMetricsForTeacher(ctx context.Context, teacherID string) (map[string]models.AggregationResult, bool, error)
	History(ctx context.Context, teacherID string, limit int) ([]dto.SnapshotResponse, error)
}

type recalculationService interface {
	ManualRecalculation(ctx context.Context) (*dto.RecalculationSummary, error)
}

// KpiHandler wires the KPI read and recalculation services to HTTP routes.
type KpiHandler struct {
	kpi       kpiReadService
	scheduler recalculationService
}

// NewKpiHandler constructs a new KpiHandler.
func NewKpiHandler(kpi kpiReadService, scheduler recalculationService) *KpiHandler {
	return &KpiHandler{kpi: kpi, scheduler: scheduler}
}

// Details godoc
// @Summary Teacher KPI details
// @Description Current metric values, weights and composite score for one teacher.
// @Tags KPI
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope{data=dto.TeacherKpiDetailsResponse}
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/kpi [get]
func (h *KpiHandler) Details(c *gin.Context) {
	details, cached, err := h.kpi.GetTeacherKpiDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil, cacheMeta(cached))
}

// Feedback godoc
// @Summary Feedback-derived KPI figures
// @Tags KPI
// @Produce json
// @Param id path string true "Teacher ID"
// @Param period query string false "Feedback period label, e.g. 2026-q1"
// @Success 200 {object} response.Envelope{data=dto.FeedbackKpiResponse}
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/kpi/feedback [get]
func (h *KpiHandler) Feedback(c *gin.Context) {
	result, err := h.kpi.CalculateTeacherKPIFromFeedback(c.Request.Context(), c.Param("id"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Aggregations godoc
// @Summary All feedback aggregations for one teacher
// @Tags KPI
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/kpi/metrics [get]
func (h *KpiHandler) Aggregations(c *gin.Context) {
	results, cached, err := h.kpi.AggregateAllKpiMetricsForTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil, cacheMeta(cached))
}

// History godoc
// @Summary Persisted KPI snapshots for one teacher
// @Tags KPI
// @Produce json
// @Param id path string true "Teacher ID"
// @Param limit query int false "Max snapshots (default 20, cap 100)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/kpi/history [get]
func (h *KpiHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	snapshots, err := h.kpi.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshots, nil)
}

// Recalculate godoc
// @Summary Recalculate all teacher KPI scores
// @Description Runs a full batch immediately. Rejected with 409 while another run is in progress.
// @Tags KPI
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.RecalculationSummary}
// @Failure 409 {object} response.Envelope
// @Router /kpi/recalculate [post]
func (h *KpiHandler) Recalculate(c *gin.Context) {
	summary, err := h.scheduler.ManualRecalculation(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

func cacheMeta(hit bool) map[string]interface{} {
	if hit {
		return map[string]interface{}{"cache": "hit"}
	}
	return nil
}
