package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

// DepartmentRepository resolves departments referenced by subjects and schedules.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository creates a department repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// FindByName resolves a department by its trimmed name or returns sql.ErrNoRows.
func (r *DepartmentRepository) FindByName(ctx context.Context, exec sqlx.ExtContext, name string) (*models.Department, error) {
	const query = `SELECT id, name, code FROM departments WHERE TRIM(name) = $1 LIMIT 1`
	var dept models.Department
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &dept, query, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return &dept, nil
}
