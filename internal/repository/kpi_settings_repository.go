package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// KpiSettingsRepository manages metric weights and org-wide KPI policy.
type KpiSettingsRepository struct {
	db *sqlx.DB
}

// NewKpiSettingsRepository constructs a KpiSettingsRepository.
func NewKpiSettingsRepository(db *sqlx.DB) *KpiSettingsRepository {
	return &KpiSettingsRepository{db: db}
}

// ListMetricSettings returns all metric settings ordered by key.
func (r *KpiSettingsRepository) ListMetricSettings(ctx context.Context) ([]models.MetricSetting, error) {
	const query = `SELECT id, metric_key, display_name, weight, target, success_threshold, warning_threshold, active, category, updated_at FROM kpi_metric_settings ORDER BY metric_key ASC`
	var settings []models.MetricSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list metric settings: %w", err)
	}
	return settings, nil
}

// ReplaceMetricSettings swaps the full settings set within one transaction.
// Validation of the weight invariant happens in the service before this call.
func (r *KpiSettingsRepository) ReplaceMetricSettings(ctx context.Context, settings []models.MetricSetting) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM kpi_metric_settings`); err != nil {
		return fmt.Errorf("clear metric settings: %w", err)
	}

	const insert = `INSERT INTO kpi_metric_settings (id, metric_key, display_name, weight, target, success_threshold, warning_threshold, active, category, updated_at)
		VALUES (:id, :metric_key, :display_name, :weight, :target, :success_threshold, :warning_threshold, :active, :category, :updated_at)`
	now := time.Now().UTC()
	for i := range settings {
		if settings[i].ID == "" {
			settings[i].ID = uuid.NewString()
		}
		settings[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, settings[i]); err != nil {
			return fmt.Errorf("insert metric setting %s: %w", settings[i].Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings tx: %w", err)
	}
	return nil
}

// GetOrganizationSettings returns the single org-wide settings row.
func (r *KpiSettingsRepository) GetOrganizationSettings(ctx context.Context) (*models.OrganizationKpiSettings, error) {
	const query = `SELECT id, calculation_period, auto_notifications, notification_threshold, updated_at FROM kpi_organization_settings LIMIT 1`
	var settings models.OrganizationKpiSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateOrganizationSettings upserts the org-wide settings row.
func (r *KpiSettingsRepository) UpdateOrganizationSettings(ctx context.Context, settings *models.OrganizationKpiSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO kpi_organization_settings (id, calculation_period, auto_notifications, notification_threshold, updated_at)
		VALUES (:id, :calculation_period, :auto_notifications, :notification_threshold, :updated_at)
		ON CONFLICT (id) DO UPDATE SET calculation_period = EXCLUDED.calculation_period,
			auto_notifications = EXCLUDED.auto_notifications,
			notification_threshold = EXCLUDED.notification_threshold,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert organization settings: %w", err)
	}
	return nil
}
