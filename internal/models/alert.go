package models

import "time"

// ExamAlert is an admin-defined window in which departments are expected to schedule exams.
type ExamAlert struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartDate Date      `db:"start_date" json:"start_date"`
	EndDate   Date      `db:"end_date" json:"end_date"`
	Year      int       `db:"year" json:"year"`
	Semester  int       `db:"semester" json:"semester"`
	ExamType  ExamType  `db:"exam_type" json:"exam_type"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether day falls inside the window, bounds included.
func (a ExamAlert) Contains(day Date) bool {
	return !day.Before(a.StartDate) && !a.EndDate.Before(day)
}

// ExamAlertFilter narrows alert listings.
type ExamAlertFilter struct {
	ActiveOn *Date
	ExamType ExamType
	Year     int
}
