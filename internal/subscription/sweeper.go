package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinicd/internal/domain"
)

// DefaultSweepBatchSize bounds one listing round trip. The cron endpoint runs
// the whole sweep inside a single request timeout, so batches stay small.
const DefaultSweepBatchSize = 100

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Processed int // users actually demoted
	Failed    int // users whose demotion errored; the scan continued past them
}

// Sweeper demotes users whose trial window has expired.
type Sweeper struct {
	users     domain.UserRepository
	batchSize int
	now       func() time.Time
	logger    zerolog.Logger
}

func NewSweeper(users domain.UserRepository, batchSize int, logger zerolog.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &Sweeper{
		users:     users,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Sweep scans users still flagged in-trial with an expired window and clears
// their plan and trial flag, leaving the trial dates as an audit trail. A
// single user's failure is logged and counted, never fatal; only a failure to
// list the candidate set aborts the run. The per-user update is conditional on
// the pre-demotion state, so re-running after completion processes zero rows
// and overlapping cron invocations are no-ops past the first.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	for {
		batch, err := s.users.ListExpiredTrials(ctx, now, s.batchSize)
		if err != nil {
			return res, fmt.Errorf("list expired trials: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		demotedInBatch := 0
		for _, u := range batch {
			demoted, err := s.users.DemoteExpired(ctx, u.ID, now)
			if err != nil {
				res.Failed++
				s.logger.Error().Err(err).Str("user_id", u.ID).Msg("sweep: demote failed")
				continue
			}
			if demoted {
				res.Processed++
				demotedInBatch++
				s.logger.Info().Str("user_id", u.ID).Msg("sweep: trial expired, plan cleared")
			}
		}

		if len(batch) < s.batchSize {
			break
		}
		// Nothing in a full batch moved: every remaining candidate is failing
		// or was taken by a concurrent run. Stop instead of spinning.
		if demotedInBatch == 0 {
			break
		}
	}

	return res, nil
}
