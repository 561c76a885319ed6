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

func TestKpiSnapshotRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewKpiSnapshotRepository(db)

	mock.ExpectExec("INSERT INTO kpi_snapshots").
		WillReturnResult(sqlmock.NewResult(1, 1))

	snapshot := &models.KpiSnapshot{
		TeacherID:    "t1",
		OverallScore: 87.5,
		Metrics: models.MetricValueMap{
			models.MetricWorkloadCompliance: models.Available(87.5),
		},
		Trigger: models.TriggerManual,
	}
	err := repo.InsertSnapshot(context.Background(), snapshot)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.False(t, snapshot.CalculatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKpiSnapshotRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewKpiSnapshotRepository(db)

	metrics := []byte(`{"workload_compliance":{"score":90,"available":true}}`)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "overall_score", "metrics", "trigger_kind", "calculated_at"}).
		AddRow("s1", "t1", 90.0, metrics, "scheduled", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, overall_score, metrics, trigger_kind, calculated_at FROM kpi_snapshots WHERE teacher_id = $1 ORDER BY calculated_at DESC LIMIT 20")).
		WithArgs("t1").
		WillReturnRows(rows)

	snapshots, err := repo.ListByTeacher(context.Background(), "t1", 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.TriggerScheduled, snapshots[0].Trigger)
	value := snapshots[0].Metrics[models.MetricWorkloadCompliance]
	assert.True(t, value.Available)
	assert.Equal(t, 90.0, value.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKpiSnapshotRepositoryInsertRun(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewKpiSnapshotRepository(db)

	mock.ExpectExec("INSERT INTO kpi_recalculation_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.RecalculationRun{
		Trigger:      models.TriggerScheduled,
		SuccessCount: 40,
		ErrorCount:   2,
		DurationMs:   1534,
		StartedAt:    time.Now().Add(-2 * time.Second),
		FinishedAt:   time.Now(),
	}
	require.NoError(t, repo.InsertRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
