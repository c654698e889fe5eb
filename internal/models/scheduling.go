package models

import "fmt"

// SchedulingErrorKind classifies why a scheduling request was rejected.
type SchedulingErrorKind string

const (
	SubjectNotFound           SchedulingErrorKind = "SUBJECT_NOT_FOUND"
	DepartmentNotFound        SchedulingErrorKind = "DEPARTMENT_NOT_FOUND"
	DepartmentDoubleBooked    SchedulingErrorKind = "DEPARTMENT_DOUBLE_BOOKED"
	SharedSubjectDateMismatch SchedulingErrorKind = "SHARED_SUBJECT_DATE_MISMATCH"
	AlreadyScheduled          SchedulingErrorKind = "ALREADY_SCHEDULED"
	PersistenceError          SchedulingErrorKind = "PERSISTENCE_ERROR"
)

// SchedulingError carries the conflicting department and date of a rejected request.
type SchedulingError struct {
	Kind       SchedulingErrorKind `json:"kind"`
	Message    string              `json:"message"`
	Department string              `json:"department,omitempty"`
	ExamDate   string              `json:"exam_date,omitempty"`
	Err        error               `json:"-"`
}

// Error implements the error interface.
func (e *SchedulingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Department, e.ExamDate)
}

// Unwrap returns the store error behind the rejection, if any.
func (e *SchedulingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SubjectRefKind distinguishes catalog subjects from subjects embedded in legacy staff profiles.
type SubjectRefKind int

const (
	CatalogSubjectRef SubjectRefKind = iota + 1
	StaffEmbeddedSubjectRef
)

// SubjectRef identifies the subject of a scheduling request.
type SubjectRef struct {
	Kind SubjectRefKind
	ID   string
}

// CatalogSubject references a subject_detail row.
func CatalogSubject(id string) SubjectRef {
	return SubjectRef{Kind: CatalogSubjectRef, ID: id}
}

// StaffEmbeddedSubject references the ad-hoc subject of a staff profile.
func StaffEmbeddedSubject(staffID string) SubjectRef {
	return SubjectRef{Kind: StaffEmbeddedSubjectRef, ID: staffID}
}

// String describes the reference for logs.
func (r SubjectRef) String() string {
	switch r.Kind {
	case CatalogSubjectRef:
		return "subject:" + r.ID
	case StaffEmbeddedSubjectRef:
		return "staff:" + r.ID
	default:
		return "unknown:" + r.ID
	}
}

// DepartmentNotification is handed to the notifier for each department whose timetable was
// changed by another department's request.
type DepartmentNotification struct {
	DepartmentID       string `json:"department_id"`
	DepartmentName     string `json:"department_name"`
	SubjectName        string `json:"subject_name"`
	ExamDate           string `json:"exam_date"`
	ExamType           string `json:"exam_type"`
	OriginDepartmentID string `json:"origin_department_id"`
	OriginDepartment   string `json:"origin_department"`
	AssignedBy         string `json:"assigned_by"`
}
