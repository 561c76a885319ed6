package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/b1411/abai-kpi-api/internal/dto"
	"github.com/b1411/abai-kpi-api/internal/models"
	appErrors "github.com/b1411/abai-kpi-api/pkg/errors"
)

// weightTolerance absorbs float drift when checking the 100% invariant.
const weightTolerance = 0.001

type kpiSettingsRepository interface {
	ListMetricSettings(ctx context.Context) ([]models.MetricSetting, error)
	ReplaceMetricSettings(ctx context.Context, settings []models.MetricSetting) error
	GetOrganizationSettings(ctx context.Context) (*models.OrganizationKpiSettings, error)
	UpdateOrganizationSettings(ctx context.Context, settings *models.OrganizationKpiSettings) error
}

var knownMetricKeys = map[models.MetricKey]struct{}{
	models.MetricWorkloadCompliance:      {},
	models.MetricClassAttendance:         {},
	models.MetricTeachingQuality:         {},
	models.MetricStudentSatisfaction:     {},
	models.MetricProfessionalDevelopment: {},
}

// KpiSettingsService manages metric weights and organization-wide policy.
// The sum-of-active-weights invariant is enforced on update only; reads
// return whatever is stored.
type KpiSettingsService struct {
	repo      kpiSettingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewKpiSettingsService constructs the settings service.
func NewKpiSettingsService(repo kpiSettingsRepository, validate *validator.Validate, logger *zap.Logger) *KpiSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KpiSettingsService{repo: repo, validator: validate, logger: logger}
}

// List returns the configured metric settings.
func (s *KpiSettingsService) List(ctx context.Context) ([]models.MetricSetting, error) {
	settings, err := s.repo.ListMetricSettings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list metric settings")
	}
	return settings, nil
}

// Update replaces the metric settings set. Active weights must sum to 100;
// the invariant is checked before any persistence is attempted.
func (s *KpiSettingsService) Update(ctx context.Context, req dto.UpdateMetricSettingsRequest) ([]models.MetricSetting, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid metric settings payload")
	}

	seen := make(map[models.MetricKey]struct{}, len(req.Settings))
	activeWeight := 0.0
	for _, entry := range req.Settings {
		if _, ok := knownMetricKeys[entry.Key]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownMetric, fmt.Sprintf("unknown metric key %q", entry.Key))
		}
		if _, dup := seen[entry.Key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate metric key %q", entry.Key))
		}
		seen[entry.Key] = struct{}{}
		if entry.Active {
			activeWeight += entry.Weight
		}
	}
	if activeWeight < 100-weightTolerance || activeWeight > 100+weightTolerance {
		return nil, appErrors.ErrInvalidWeights
	}

	settings := make([]models.MetricSetting, len(req.Settings))
	for i, entry := range req.Settings {
		category := entry.Category
		if category == "" {
			category = models.MetricCategoryPeriodic
		}
		settings[i] = models.MetricSetting{
			Key:              entry.Key,
			DisplayName:      displayName(entry.Key),
			Weight:           entry.Weight,
			Target:           entry.Target,
			SuccessThreshold: entry.SuccessThreshold,
			WarningThreshold: entry.WarningThreshold,
			Active:           entry.Active,
			Category:         category,
		}
	}
	if err := s.repo.ReplaceMetricSettings(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update metric settings")
	}
	return s.List(ctx)
}

// GetOrganization returns the organization-wide KPI policy, seeding defaults
// when the row does not exist yet.
func (s *KpiSettingsService) GetOrganization(ctx context.Context) (*models.OrganizationKpiSettings, error) {
	settings, err := s.repo.GetOrganizationSettings(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultOrganizationSettings(), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization settings")
	}
	return settings, nil
}

// UpdateOrganization persists new organization-wide KPI policy.
func (s *KpiSettingsService) UpdateOrganization(ctx context.Context, req dto.UpdateOrganizationSettingsRequest) (*models.OrganizationKpiSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid organization settings payload")
	}

	current, err := s.GetOrganization(ctx)
	if err != nil {
		return nil, err
	}
	current.CalculationPeriod = req.CalculationPeriod
	current.AutoNotifications = req.AutoNotifications
	current.NotificationThreshold = req.NotificationThreshold
	if err := s.repo.UpdateOrganizationSettings(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update organization settings")
	}
	return current, nil
}

// EnsureDefaults seeds the metric settings table on first boot.
func (s *KpiSettingsService) EnsureDefaults(ctx context.Context) error {
	existing, err := s.repo.ListMetricSettings(ctx)
	if err != nil {
		return fmt.Errorf("check metric settings: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	s.logger.Info("seeding default metric settings")
	return s.repo.ReplaceMetricSettings(ctx, DefaultMetricSettings())
}

// DefaultMetricSettings is the out-of-the-box weighting: the three metrics
// with real data sources carry the full 100%.
func DefaultMetricSettings() []models.MetricSetting {
	return []models.MetricSetting{
		{Key: models.MetricWorkloadCompliance, DisplayName: displayName(models.MetricWorkloadCompliance), Weight: 40, Target: 95, SuccessThreshold: 90, WarningThreshold: 70, Active: true, Category: models.MetricCategoryPeriodic},
		{Key: models.MetricClassAttendance, DisplayName: displayName(models.MetricClassAttendance), Weight: 35, Target: 90, SuccessThreshold: 85, WarningThreshold: 65, Active: true, Category: models.MetricCategoryPeriodic},
		{Key: models.MetricTeachingQuality, DisplayName: displayName(models.MetricTeachingQuality), Weight: 25, Target: 85, SuccessThreshold: 75, WarningThreshold: 60, Active: true, Category: models.MetricCategoryConstant},
		{Key: models.MetricStudentSatisfaction, DisplayName: displayName(models.MetricStudentSatisfaction), Weight: 0, Target: 80, SuccessThreshold: 75, WarningThreshold: 55, Active: false, Category: models.MetricCategoryPeriodic},
		{Key: models.MetricProfessionalDevelopment, DisplayName: displayName(models.MetricProfessionalDevelopment), Weight: 0, Target: 80, SuccessThreshold: 75, WarningThreshold: 55, Active: false, Category: models.MetricCategoryConstant},
	}
}

func defaultOrganizationSettings() *models.OrganizationKpiSettings {
	return &models.OrganizationKpiSettings{
		CalculationPeriod:     models.PeriodMonthly,
		AutoNotifications:     false,
		NotificationThreshold: 60,
		UpdatedAt:             time.Now().UTC(),
	}
}

func displayName(key models.MetricKey) string {
	switch key {
	case models.MetricWorkloadCompliance:
		return "Workload compliance"
	case models.MetricClassAttendance:
		return "Class attendance"
	case models.MetricTeachingQuality:
		return "Teaching quality"
	case models.MetricStudentSatisfaction:
		return "Student satisfaction"
	case models.MetricProfessionalDevelopment:
		return "Professional development"
	default:
		return string(key)
	}
}
