package models

import "strings"

// Staff is a staff profile. Legacy profiles embed a single ad-hoc subject via SubjectName/SubjectCode.
type Staff struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Email       string  `db:"email" json:"email"`
	Department  string  `db:"department" json:"department"`
	Role        string  `db:"role" json:"role"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
	SubjectCode *string `db:"subject_code" json:"subject_code,omitempty"`
}

// EmbeddedSubject returns the trimmed embedded subject name and code, if the profile carries one.
func (s Staff) EmbeddedSubject() (name, code string, ok bool) {
	if s.SubjectCode == nil || strings.TrimSpace(*s.SubjectCode) == "" {
		return "", "", false
	}
	code = strings.TrimSpace(*s.SubjectCode)
	if s.SubjectName != nil {
		name = strings.TrimSpace(*s.SubjectName)
	}
	if name == "" {
		name = code
	}
	return name, code, true
}
