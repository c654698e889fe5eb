package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

const (
	examScheduleColumns = `id, subject_id, exam_date, department_id, assigned_by, priority_department, exam_type, created_at`

	examScheduleDetailSelect = `SELECT es.id, es.subject_id, es.exam_date, es.department_id, es.assigned_by, es.priority_department, es.exam_type, es.created_at,
sd.name AS subject_name, sd.subcode AS subject_code, d.name AS department_name, pd.name AS priority_department_name
FROM exam_schedules es
JOIN subject_detail sd ON sd.id = es.subject_id
JOIN departments d ON d.id = es.department_id
LEFT JOIN departments pd ON pd.id = es.priority_department`
)

// ExamScheduleRepository persists exam schedule records.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository creates a new exam schedule repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

// ListByDate returns every booking on the given day with department names resolved.
func (r *ExamScheduleRepository) ListByDate(ctx context.Context, exec sqlx.ExtContext, date models.Date) ([]models.ExamScheduleDetail, error) {
	const query = examScheduleDetailSelect + ` WHERE es.exam_date = $1 ORDER BY es.created_at ASC, es.id ASC`
	var items []models.ExamScheduleDetail
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &items, query, date); err != nil {
		return nil, fmt.Errorf("list exam schedules by date: %w", err)
	}
	return items, nil
}

// ListBySubjectName returns bookings of every subject row sharing the name, oldest first.
func (r *ExamScheduleRepository) ListBySubjectName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.ExamScheduleDetail, error) {
	const query = examScheduleDetailSelect + ` WHERE TRIM(sd.name) = $1 ORDER BY es.created_at ASC, es.id ASC`
	var items []models.ExamScheduleDetail
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &items, query, strings.TrimSpace(name)); err != nil {
		return nil, fmt.Errorf("list exam schedules by subject name: %w", err)
	}
	return items, nil
}

// FindBySubjectAndDepartment returns the booking for the pair or sql.ErrNoRows.
func (r *ExamScheduleRepository) FindBySubjectAndDepartment(ctx context.Context, exec sqlx.ExtContext, subjectID, departmentID string) (*models.ExamSchedule, error) {
	const query = `SELECT ` + examScheduleColumns + ` FROM exam_schedules WHERE subject_id = $1 AND department_id = $2`
	var sched models.ExamSchedule
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &sched, query, subjectID, departmentID); err != nil {
		return nil, err
	}
	return &sched, nil
}

// BulkCreate inserts all schedules with a single multi-row statement, so either every row
// is written or none is.
func (r *ExamScheduleRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, schedules []models.ExamSchedule) error {
	if len(schedules) == 0 {
		return nil
	}

	now := time.Now().UTC()
	const width = 8
	placeholders := make([]string, 0, len(schedules))
	args := make([]interface{}, 0, len(schedules)*width)
	for i := range schedules {
		s := &schedules[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		base := i * width
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, s.ID, s.SubjectID, s.ExamDate, s.DepartmentID, s.AssignedBy, s.PriorityDepartment, string(s.ExamType), s.CreatedAt)
	}

	query := `INSERT INTO exam_schedules (` + examScheduleColumns + `) VALUES ` + strings.Join(placeholders, ", ")
	if _, err := executor(r.db, exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert exam schedules: %w", err)
	}
	return nil
}

// List returns schedules with optional filtering and pagination.
func (r *ExamScheduleRepository) List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamScheduleDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("es.exam_date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("es.exam_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("es.exam_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("es.department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.ExamType != "" {
		conditions = append(conditions, fmt.Sprintf("es.exam_type = $%d", len(args)+1))
		args = append(args, string(filter.ExamType))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY es.exam_date ASC, d.name ASC LIMIT %d OFFSET %d", examScheduleDetailSelect, where, size, offset)
	var items []models.ExamScheduleDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exam schedules: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM exam_schedules es" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exam schedules: %w", err)
	}

	return items, total, nil
}

// FindByID loads a schedule by id.
func (r *ExamScheduleRepository) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	const query = `SELECT ` + examScheduleColumns + ` FROM exam_schedules WHERE id = $1`
	var sched models.ExamSchedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Delete removes a schedule by id, returning sql.ErrNoRows when nothing was deleted.
func (r *ExamScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM exam_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("exam schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
