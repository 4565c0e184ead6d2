package domain

import "time"

// Patient belongs to exactly one clinic.
type Patient struct {
	ID        string
	ClinicID  string
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
