package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

// StaffRepository reads staff profiles.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a staff repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByID loads a staff profile or returns sql.ErrNoRows.
func (r *StaffRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error) {
	const query = `SELECT id, name, email, department, role, subject_name, subject_code FROM staff_details WHERE id = $1`
	var staff models.Staff
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}
