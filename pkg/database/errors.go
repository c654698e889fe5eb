package database

import (
	"errors"

	"github.com/lib/pq"
)

// SQLSTATE codes the scheduling engine reacts to.
const (
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
)

// Constraint names declared in migrations/000001_init_schema.up.sql.
const (
	ConstraintSubjectDepartment = "exam_schedules_subject_department_key"
	ConstraintDepartmentDate    = "exam_schedules_department_date_key"
	ConstraintSubjectCode       = "subject_detail_department_code_key"
)

// UniqueViolation reports whether err is a unique violation and returns the violated constraint.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// IsDuplicateConstraintError checks for a unique violation on a specific constraint.
func IsDuplicateConstraintError(err error, constraint string) bool {
	name, ok := UniqueViolation(err)
	return ok && name == constraint
}

// IsRetryable reports whether the transaction was aborted by the server and may be re-run.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}
