package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/b1411/abai-kpi-api/internal/models"
)

// TeacherRepository reads teacher rosters and the operational records the
// metric calculator consumes. The KPI core never mutates teacher data.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListActive returns every active teacher ordered by name. Batch runs iterate
// this list sequentially.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, email, full_name, active, created_at, updated_at FROM teachers WHERE active = TRUE ORDER BY full_name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, email, full_name, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// WorkloadsByTeacher returns the teacher's workload records.
func (r *TeacherRepository) WorkloadsByTeacher(ctx context.Context, teacherID string) ([]models.WorkloadRecord, error) {
	const query = `SELECT id, teacher_id, subject_id, standard_hours, actual_hours, period FROM workload_records WHERE teacher_id = $1`
	var records []models.WorkloadRecord
	if err := r.db.SelectContext(ctx, &records, query, teacherID); err != nil {
		return nil, fmt.Errorf("list workloads: %w", err)
	}
	return records, nil
}

// SchedulesByTeacher returns the teacher's timetable entries.
func (r *TeacherRepository) SchedulesByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT id, teacher_id, subject_id, class_id, day_of_week, slot FROM schedule_entries WHERE teacher_id = $1`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return entries, nil
}

// StudyPlansByTeacher returns the teacher's study plan assignments.
func (r *TeacherRepository) StudyPlansByTeacher(ctx context.Context, teacherID string) ([]models.StudyPlan, error) {
	const query = `SELECT id, teacher_id, subject_id, name FROM study_plans WHERE teacher_id = $1`
	var plans []models.StudyPlan
	if err := r.db.SelectContext(ctx, &plans, query, teacherID); err != nil {
		return nil, fmt.Errorf("list study plans: %w", err)
	}
	return plans, nil
}
