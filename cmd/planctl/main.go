// Command planctl administers plan assignments from the shell. It covers the
// cases the billing webhook cannot: support-driven plan changes and the
// one-off migration of retired plan codes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"clinicd/internal/adapter/repo"
	"clinicd/internal/domain"
	"clinicd/internal/infra"
	"clinicd/internal/sqlinline"
)

const migrateBatchSize = 500

func main() {
	var (
		idFlag      string
		emailFlag   string
		planFlag    string
		clearFlag   bool
		migrateFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "", "plan code to assign (basico, profissional)")
	flag.BoolVar(&clearFlag, "clear", false, "clear the user's plan instead of assigning one")
	flag.BoolVar(&migrateFlag, "migrate-legacy", false, "rewrite retired plan codes to their current equivalents")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "planctl").Logger()

	if migrateFlag {
		if err := migrateLegacy(ctx, infra.NewSQLRunner(pool, logger)); err != nil {
			exitWithError(err)
		}
		return
	}

	if err := setPlan(ctx, pool, idFlag, emailFlag, planFlag, clearFlag); err != nil {
		exitWithError(err)
	}
}

func setPlan(ctx context.Context, pool *pgxpool.Pool, idFlag, emailFlag, planFlag string, clear bool) error {
	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(strings.ToLower(emailFlag))
	if userID == "" && email == "" {
		return errors.New("either -id or -email must be provided")
	}

	var plan *domain.Plan
	if !clear {
		parsed, err := domain.ParsePlan(strings.TrimSpace(strings.ToLower(planFlag)))
		if err != nil {
			return fmt.Errorf("-plan: %w (valid codes: %v)", err, domain.Plans())
		}
		if parsed.IsTrial() {
			return fmt.Errorf("trial codes are granted by the trial manager, not assigned by hand")
		}
		plan = &parsed
	}

	users := repo.NewUserRepository(pool)

	user, err := lookupUser(ctx, users, userID, email)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := users.SetPlan(ctx, user.ID, plan); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	if plan == nil {
		fmt.Printf("User %s (%s) plan cleared\n", user.ID, user.Email)
	} else {
		fmt.Printf("User %s (%s) updated to plan %s\n", user.ID, user.Email, *plan)
	}
	return nil
}

func lookupUser(ctx context.Context, users domain.UserRepository, userID, email string) (*domain.User, error) {
	if userID != "" {
		return users.GetByID(ctx, userID)
	}
	return users.GetByEmail(ctx, email)
}

// migrateLegacy rewrites retired plan codes batch by batch. The update is
// conditional on the old code still being present, so re-running after a
// partial failure only touches what is left.
func migrateLegacy(ctx context.Context, runner *infra.SQLRunner) error {
	legacy := domain.LegacyPlanCodes()
	total := 0

	for {
		rows, err := runner.Query(ctx, sqlinline.QSelectLegacyPlanUsers, legacy, migrateBatchSize)
		if err != nil {
			return fmt.Errorf("failed to list legacy rows: %w", err)
		}

		type legacyRow struct {
			id    string
			email string
			plan  string
		}
		batch := make([]legacyRow, 0, migrateBatchSize)
		for rows.Next() {
			var row legacyRow
			if err := rows.Scan(&row.id, &row.email, &row.plan); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan legacy row: %w", err)
			}
			batch = append(batch, row)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate legacy rows: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, row := range batch {
			replacement, ok := domain.MigrateLegacyPlan(row.plan)
			if !ok {
				return fmt.Errorf("no replacement for code %q on user %s", row.plan, row.id)
			}
			var id, email, plan string
			err := runner.QueryRow(ctx, sqlinline.QMigrateUserPlanCode, row.id, string(replacement), row.plan).
				Scan(&id, &email, &plan)
			if err != nil {
				if infra.IsNoRows(err) {
					// Another run migrated this row between list and update.
					continue
				}
				return fmt.Errorf("failed to migrate user %s: %w", row.id, err)
			}
			total++
			fmt.Printf("migrated %s (%s): %s -> %s\n", id, email, row.plan, plan)
		}

		if len(batch) < migrateBatchSize {
			break
		}
	}

	fmt.Printf("migrated %d users\n", total)
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
