package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users. The conditional mutations
// (AssignTrial, DemoteExpired) report whether a row actually changed so the
// trial manager and the sweeper can distinguish a by-design no-op from a write.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// AssignTrial sets the trial plan, flag and window only when the user has
	// no plan yet. Returns false when the row was left untouched.
	AssignTrial(ctx context.Context, userID string, plan Plan, start, end time.Time) (bool, error)

	// ListExpiredTrials returns up to limit users still flagged in-trial whose
	// window ended before now, oldest expiry first.
	ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]User, error)

	// DemoteExpired clears the plan and trial flag only while the row is still
	// in the expired-trial state, so overlapping sweeps are safe. Trial dates
	// are preserved. Returns false when another run got there first.
	DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error)

	// SetPlan assigns a paid plan (or clears it when plan is nil) and drops the
	// trial flag. Used by the billing webhook path.
	SetPlan(ctx context.Context, userID string, plan *Plan) error

	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
}

// ClinicRepository defines persistence for clinics.
type ClinicRepository interface {
	Create(ctx context.Context, clinic *Clinic) (*Clinic, error)
	GetByID(ctx context.Context, id string) (*Clinic, error)
	GetByOwner(ctx context.Context, ownerID string) (*Clinic, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Clinic, error)
	Update(ctx context.Context, clinic *Clinic) (*Clinic, error)
}
