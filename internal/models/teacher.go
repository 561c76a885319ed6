package models

import "time"

// Teacher represents a staff member whose KPI scores are computed.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WorkloadRecord captures planned versus delivered hours for one assignment.
type WorkloadRecord struct {
	ID            string  `db:"id" json:"id"`
	TeacherID     string  `db:"teacher_id" json:"teacher_id"`
	SubjectID     string  `db:"subject_id" json:"subject_id"`
	StandardHours float64 `db:"standard_hours" json:"standard_hours"`
	ActualHours   float64 `db:"actual_hours" json:"actual_hours"`
	Period        string  `db:"period" json:"period"`
}

// ScheduleEntry is one recurring slot in a teacher's timetable.
type ScheduleEntry struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	Slot      int    `db:"slot" json:"slot"`
}

// StudyPlan links a teacher to a subject curriculum.
type StudyPlan struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	Name      string `db:"name" json:"name"`
}

// LessonResult records a single lesson outcome. Attendance is nullable:
// a lesson without a mark carries no attendance signal at all.
type LessonResult struct {
	ID         string    `db:"id" json:"id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	LessonDate time.Time `db:"lesson_date" json:"lesson_date"`
	Attendance *bool     `db:"attendance" json:"attendance,omitempty"`
}

// TeacherKpiBundle aggregates the operational records one metric pass reads.
type TeacherKpiBundle struct {
	Teacher       Teacher
	Workloads     []WorkloadRecord
	Schedules     []ScheduleEntry
	StudyPlans    []StudyPlan
	LessonResults []LessonResult
}
