package models

import "strings"

// Subject is one department's catalog row for a teachable unit. Rows of different departments
// that share a Name form a shared-subject group whose exams run on one date.
type Subject struct {
	ID                string  `db:"id" json:"id"`
	Code              string  `db:"subcode" json:"code"`
	Name              string  `db:"name" json:"name"`
	Department        string  `db:"department" json:"department"`
	Year              int     `db:"year" json:"year"`
	Semester          int     `db:"sem" json:"semester"`
	IsShared          bool    `db:"is_shared" json:"is_shared"`
	SharedSubjectCode *string `db:"shared_subject_code" json:"shared_subject_code,omitempty"`
}

// DepartmentName returns the owning department name as used for comparisons.
func (s Subject) DepartmentName() string {
	return strings.TrimSpace(s.Department)
}
