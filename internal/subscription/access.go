package subscription

import (
	"context"
	"time"

	"clinicd/internal/domain"
)

// Access is the evaluator's verdict for a single user row.
type Access struct {
	HasAccess   bool         `json:"hasAccess"`
	IsTrialUser bool         `json:"isTrialUser"`
	Plan        *domain.Plan `json:"plan"`
	TrialEndsAt *time.Time   `json:"trialEndsAt,omitempty"`
}

// CheckAccess evaluates a user row without mutating it. Any valid plan grants
// access; trial expiry is deliberately not re-checked here because the sweeper
// is the sole demotion path. An expired trial therefore keeps access for at
// most one sweep interval (see DESIGN.md).
func CheckAccess(u *domain.User) Access {
	if u == nil || u.Plan == nil || !u.Plan.IsValid() {
		return Access{}
	}
	return Access{
		HasAccess:   true,
		IsTrialUser: u.Plan.IsTrial(),
		Plan:        u.Plan,
		TrialEndsAt: u.TrialEndDate,
	}
}

// Evaluator loads user rows and applies CheckAccess.
type Evaluator struct {
	users domain.UserRepository
}

func NewEvaluator(users domain.UserRepository) *Evaluator {
	return &Evaluator{users: users}
}

// Evaluate returns the access verdict for the user, or domain.ErrNotFound when
// no such row exists. Callers branch on the error rather than receiving a
// panic or a zero verdict for an unknown id.
func (e *Evaluator) Evaluate(ctx context.Context, userID string) (Access, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return Access{}, err
	}
	return CheckAccess(user), nil
}
