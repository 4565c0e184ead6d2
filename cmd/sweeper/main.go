// Command sweeper demotes users whose trial window has expired. It backs the
// cron HTTP endpoint for deployments that prefer a long-running process over
// an external scheduler; both paths run the same sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clinicd/internal/adapter/repo"
	"clinicd/internal/infra"
	"clinicd/internal/subscription"
)

func main() {
	var (
		once     bool
		interval time.Duration
	)
	flag.BoolVar(&once, "once", false, "run a single sweep and exit")
	flag.DurationVar(&interval, "interval", time.Hour, "time between sweeps")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "sweeper").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	sweeper := subscription.NewSweeper(repo.NewUserRepository(pool), cfg.SweepBatchSize, logger)

	run := func() {
		res, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("sweeper: sweep aborted")
			return
		}
		logger.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("sweeper: sweep complete")
	}

	run()
	if once {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.Canceled) {
				logger.Error().Err(ctx.Err()).Msg("sweeper: stopped with error")
			}
			logger.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
