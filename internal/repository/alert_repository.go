package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

const alertColumns = `id, title, start_date, end_date, year, semester, exam_type, created_by, created_at`

// AlertRepository stores exam scheduling windows.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates an alert repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *models.ExamAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_alerts (` + alertColumns + `) VALUES (:id, :title, :start_date, :end_date, :year, :semester, :exam_type, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create exam alert: %w", err)
	}
	return nil
}

// FindByID loads an alert or returns sql.ErrNoRows.
func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.ExamAlert, error) {
	const query = `SELECT ` + alertColumns + ` FROM exam_alerts WHERE id = $1`
	var alert models.ExamAlert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// List returns alerts matching the filter, latest window first.
func (r *AlertRepository) List(ctx context.Context, filter models.ExamAlertFilter) ([]models.ExamAlert, error) {
	var conditions []string
	var args []interface{}
	if filter.ActiveOn != nil {
		args = append(args, *filter.ActiveOn)
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d AND end_date >= $%d", len(args), len(args)))
	}
	if filter.ExamType != "" {
		args = append(args, string(filter.ExamType))
		conditions = append(conditions, fmt.Sprintf("exam_type = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}

	query := `SELECT ` + alertColumns + ` FROM exam_alerts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date DESC, created_at DESC"

	var alerts []models.ExamAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("list exam alerts: %w", err)
	}
	return alerts, nil
}
