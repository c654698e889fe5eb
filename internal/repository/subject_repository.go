package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

const subjectColumns = `id, subcode, name, department, year, sem, is_shared, shared_subject_code`

// SubjectRepository reads and materializes catalog subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject by id or sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Subject, error) {
	const query = `SELECT ` + subjectColumns + ` FROM subject_detail WHERE id = $1`
	var subject models.Subject
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindByName returns every department's row for a subject name.
func (r *SubjectRepository) FindByName(ctx context.Context, exec sqlx.ExtContext, name string) ([]models.Subject, error) {
	const query = `SELECT ` + subjectColumns + ` FROM subject_detail WHERE TRIM(name) = $1 ORDER BY department ASC, id ASC`
	var subjects []models.Subject
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &subjects, query, strings.TrimSpace(name)); err != nil {
		return nil, fmt.Errorf("find subjects by name: %w", err)
	}
	return subjects, nil
}

// FindByCode returns the first subject carrying the code or sql.ErrNoRows.
func (r *SubjectRepository) FindByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.Subject, error) {
	const query = `SELECT ` + subjectColumns + ` FROM subject_detail WHERE subcode = $1 ORDER BY id ASC LIMIT 1`
	var subject models.Subject
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &subject, query, strings.TrimSpace(code)); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create persists a new subject row.
func (r *SubjectRepository) Create(ctx context.Context, exec sqlx.ExtContext, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	const query = `INSERT INTO subject_detail (` + subjectColumns + `) VALUES (:id, :subcode, :name, :department, :year, :sem, :is_shared, :shared_subject_code)`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}
