package domain

import (
	"fmt"
	"time"
)

// Clinic is the tenant unit. Every protected request resolves the caller's
// clinic before any plan check runs.
type Clinic struct {
	ID        string
	OwnerID   string
	Name      string
	Phone     string
	Address   string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateTimezone rejects timezone names the runtime cannot load. Appointment
// times are rendered in the clinic's local zone, so a bad name here corrupts
// every schedule view downstream.
func ValidateTimezone(name string) error {
	if name == "" {
		return nil
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return nil
}
