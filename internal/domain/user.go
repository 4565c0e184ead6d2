package domain

import "time"

// User is an account holder. Plan is nil until the trial manager or the
// billing webhook assigns one; IsInTrial implies both trial dates are set and
// Plan is a trial variant. Trial dates survive demotion as an audit trail.
type User struct {
	ID               string
	Email            string
	Name             string
	PasswordHash     string
	Plan             *Plan
	IsInTrial        bool
	TrialStartDate   *time.Time
	TrialEndDate     *time.Time
	StripeCustomerID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasPlan reports whether any plan code is assigned.
func (u *User) HasPlan() bool {
	return u.Plan != nil
}

// TrialExpiredAt reports whether the user's trial window ended before now.
func (u *User) TrialExpiredAt(now time.Time) bool {
	if !u.IsInTrial || u.TrialEndDate == nil {
		return false
	}
	return u.TrialEndDate.Before(now)
}
