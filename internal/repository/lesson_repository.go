package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// LessonRepository reads lesson outcomes for attendance metrics.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByTeacher returns all lesson results recorded for a teacher.
func (r *LessonRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.LessonResult, error) {
	const query = `SELECT id, teacher_id, student_id, lesson_date, attendance FROM lesson_results WHERE teacher_id = $1`
	var results []models.LessonResult
	if err := r.db.SelectContext(ctx, &results, query, teacherID); err != nil {
		return nil, fmt.Errorf("list lesson results: %w", err)
	}
	return results, nil
}

// AttendanceCounts returns how many lesson results carry an attendance mark
// and how many of those are marked present. Unmarked rows carry no signal.
func (r *LessonRepository) AttendanceCounts(ctx context.Context, teacherID string) (marked int, present int, err error) {
	const query = `SELECT COUNT(*) FILTER (WHERE attendance IS NOT NULL) AS marked,
		COUNT(*) FILTER (WHERE attendance = TRUE) AS present
		FROM lesson_results WHERE teacher_id = $1`
	row := struct {
		Marked  int `db:"marked"`
		Present int `db:"present"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, teacherID); err != nil {
		return 0, 0, fmt.Errorf("count attendance: %w", err)
	}
	return row.Marked, row.Present, nil
}
