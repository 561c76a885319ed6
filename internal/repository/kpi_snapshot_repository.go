package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// KpiSnapshotRepository persists per-teacher KPI snapshots and run summaries.
type KpiSnapshotRepository struct {
	db *sqlx.DB
}

// NewKpiSnapshotRepository constructs a KpiSnapshotRepository.
func NewKpiSnapshotRepository(db *sqlx.DB) *KpiSnapshotRepository {
	return &KpiSnapshotRepository{db: db}
}

// InsertSnapshot stores one teacher's computed scores.
func (r *KpiSnapshotRepository) InsertSnapshot(ctx context.Context, snapshot *models.KpiSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CalculatedAt.IsZero() {
		snapshot.CalculatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO kpi_snapshots (id, teacher_id, overall_score, metrics, trigger_kind, calculated_at)
		VALUES (:id, :teacher_id, :overall_score, :metrics, :trigger_kind, :calculated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("insert kpi snapshot: %w", err)
	}
	return nil
}

// ListByTeacher returns a teacher's snapshots, newest first.
func (r *KpiSnapshotRepository) ListByTeacher(ctx context.Context, teacherID string, limit int) ([]models.KpiSnapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, teacher_id, overall_score, metrics, trigger_kind, calculated_at FROM kpi_snapshots WHERE teacher_id = $1 ORDER BY calculated_at DESC LIMIT %d`, limit)
	var snapshots []models.KpiSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list kpi snapshots: %w", err)
	}
	return snapshots, nil
}

// InsertRun stores a batch run summary.
func (r *KpiSnapshotRepository) InsertRun(ctx context.Context, run *models.RecalculationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	const query = `INSERT INTO kpi_recalculation_runs (id, trigger_kind, success_count, error_count, duration_ms, started_at, finished_at)
		VALUES (:id, :trigger_kind, :success_count, :error_count, :duration_ms, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("insert recalculation run: %w", err)
	}
	return nil
}
