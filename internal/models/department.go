package models

// Department is a stable reference entity owning subjects and exam bookings.
type Department struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
}
