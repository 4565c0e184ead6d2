package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinicd/internal/domain"
)

const userColumns = `id, email, name, password_hash, plan, is_in_trial, trial_start_date, trial_end_date, stripe_customer_id, created_at, updated_at`

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Create inserts a user row with no plan assigned.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns+`;
`, user.ID, user.Email, user.Name, user.PasswordHash)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email address.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// AssignTrial grants the trial plan only while the row still has plan IS NULL,
// so the first concurrent visit wins and every later call is a no-op.
func (r *UserRepositoryPG) AssignTrial(ctx context.Context, userID string, plan domain.Plan, start, end time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET plan = $2,
    is_in_trial = TRUE,
    trial_start_date = $3,
    trial_end_date = $4,
    updated_at = NOW()
WHERE id = $1
  AND plan IS NULL;
`, userID, string(plan), start, end)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredTrials returns users still flagged in-trial whose window closed
// before now, oldest expiry first.
func (r *UserRepositoryPG) ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE is_in_trial = TRUE
  AND trial_end_date < $1
ORDER BY trial_end_date
LIMIT $2;
`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// DemoteExpired clears the plan and trial flag, keyed on the pre-demotion
// state so overlapping sweeps turn into no-ops. Trial dates stay in place.
func (r *UserRepositoryPG) DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET plan = NULL,
    is_in_trial = FALSE,
    updated_at = NOW()
WHERE id = $1
  AND is_in_trial = TRUE
  AND trial_end_date < $2;
`, userID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetPlan assigns or clears the plan outside the trial flow (billing webhook).
func (r *UserRepositoryPG) SetPlan(ctx context.Context, userID string, plan *domain.Plan) error {
	var code *string
	if plan != nil {
		s := string(*plan)
		code = &s
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET plan = $2,
    is_in_trial = FALSE,
    updated_at = NOW()
WHERE id = $1;
`, userID, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStripeCustomerID records the billing provider's customer reference.
func (r *UserRepositoryPG) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET stripe_customer_id = $2,
    updated_at = NOW()
WHERE id = $1;
`, userID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var planCode *string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &planCode, &u.IsInTrial,
		&u.TrialStartDate, &u.TrialEndDate, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if planCode != nil {
		// Reject legacy or hand-edited codes here instead of letting them
		// masquerade as entitlements; planctl migrates them explicitly.
		plan, err := domain.ParsePlan(*planCode)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		u.Plan = &plan
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
