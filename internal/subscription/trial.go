package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
)

// DefaultTrialDays is the trial window length when the config leaves it unset.
const DefaultTrialDays = 7

// TrialManager grants the trial plan to users that have never selected a plan.
type TrialManager struct {
	users  domain.UserRepository
	window time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewTrialManager creates a TrialManager with a window of trialDays days.
func NewTrialManager(users domain.UserRepository, trialDays int, logger zerolog.Logger) *TrialManager {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	return &TrialManager{
		users:  users,
		window: time.Duration(trialDays) * 24 * time.Hour,
		now:    time.Now,
		logger: logger,
	}
}

// SetupTrial assigns the trial plan and window to the user, once. It returns
// (true, nil) when the trial was just granted and (false, nil) when the user
// already carries a plan, trial or paid; the two no-op shapes let callers tell
// "already provisioned" apart from a failed write. The underlying update is
// conditional on plan IS NULL, so concurrent first visits race safely.
func (m *TrialManager) SetupTrial(ctx context.Context, userID string) (bool, error) {
	start := m.now().UTC()
	end := start.Add(m.window)

	granted, err := m.users.AssignTrial(ctx, userID, domain.TrialPlan, start, end)
	if err != nil {
		return false, fmt.Errorf("assign trial: %w", err)
	}
	if granted {
		m.logger.Info().
			Str("user_id", userID).
			Time("trial_end", end).
			Msg("trial granted")
	}
	return granted, nil
}

// Window returns the configured trial duration.
func (m *TrialManager) Window() time.Duration {
	return m.window
}
