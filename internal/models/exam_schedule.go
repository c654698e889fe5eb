package models

import (
	"strings"
	"time"
)

// ExamType tags a schedule for display. It takes no part in conflict checks.
type ExamType string

const (
	ExamTypeIA1   ExamType = "IA1"
	ExamTypeIA2   ExamType = "IA2"
	ExamTypeModel ExamType = "MODEL"
)

// ExamTypes lists accepted exam types in display order.
var ExamTypes = []ExamType{ExamTypeIA1, ExamTypeIA2, ExamTypeModel}

// ExamSchedule records that a subject is examined on a date by a department.
// PriorityDepartment is set on synchronized bookings to the department whose request chose the date.
type ExamSchedule struct {
	ID                 string    `db:"id" json:"id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	ExamDate           Date      `db:"exam_date" json:"exam_date"`
	DepartmentID       string    `db:"department_id" json:"department_id"`
	AssignedBy         string    `db:"assigned_by" json:"assigned_by"`
	PriorityDepartment *string   `db:"priority_department" json:"priority_department,omitempty"`
	ExamType           ExamType  `db:"exam_type" json:"exam_type"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Synchronized reports whether the record was created by another department's request.
func (s ExamSchedule) Synchronized() bool {
	return s.PriorityDepartment != nil && *s.PriorityDepartment != ""
}

// ExamScheduleDetail joins a schedule with its subject and department names.
type ExamScheduleDetail struct {
	ExamSchedule
	SubjectName            string  `db:"subject_name" json:"subject_name"`
	SubjectCode            string  `db:"subject_code" json:"subject_code"`
	DepartmentName         string  `db:"department_name" json:"department_name"`
	PriorityDepartmentName *string `db:"priority_department_name" json:"priority_department_name,omitempty"`
}

// OriginDepartment returns the id and name of the department whose request chose the exam date.
func (d ExamScheduleDetail) OriginDepartment() (id, name string) {
	if d.Synchronized() {
		name = *d.PriorityDepartment
		if d.PriorityDepartmentName != nil {
			name = *d.PriorityDepartmentName
		}
		return *d.PriorityDepartment, strings.TrimSpace(name)
	}
	return d.DepartmentID, strings.TrimSpace(d.DepartmentName)
}

// ExamScheduleFilter describes query params for listing schedules.
type ExamScheduleFilter struct {
	Date         *Date
	From         *Date
	To           *Date
	DepartmentID string
	ExamType     ExamType
	Page         int
	PageSize     int
}
