package domain

import "time"

// StaffRole is a named permission set within a clinic (receptionist,
// practitioner, admin, ...). Permissions are stored as a jsonb string array.
type StaffRole struct {
	ID          string
	ClinicID    string
	Name        string
	Permissions []string
	CreatedAt   time.Time
}
