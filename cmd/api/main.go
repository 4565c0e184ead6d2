package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clinicd/internal/adapter/repo"
	"clinicd/internal/aichat"
	"clinicd/internal/billing"
	"clinicd/internal/gate"
	"clinicd/internal/http/handlers"
	"clinicd/internal/http/httpapi"
	"clinicd/internal/infra"
	"clinicd/internal/infra/geoip"
	"clinicd/internal/middleware"
	"clinicd/internal/subscription"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	users := repo.NewUserRepository(dbpool)
	clinics := repo.NewClinicRepository(dbpool)

	trial := subscription.NewTrialManager(users, cfg.TrialDays, logger)
	sweeper := subscription.NewSweeper(users, cfg.SweepBatchSize, logger)
	evaluator := subscription.NewEvaluator(users)

	billingSvc := billing.NewService(users, billing.Config{
		SecretKey:         cfg.StripeSecretKey,
		WebhookSecret:     cfg.StripeWebhookSecret,
		PriceBasico:       cfg.StripePriceBasico,
		PriceProfissional: cfg.StripePriceProfissional,
	}, logger)

	app := &handlers.App{
		SQL:        runner,
		Logger:     logger,
		Users:      users,
		Clinics:    clinics,
		Access:     evaluator,
		Sweeper:    sweeper,
		Billing:    billingSvc,
		JWTSecret:  cfg.JWTSecret,
		CronSecret: cfg.CronSecret,
		AppBaseURL: cfg.AppBaseURL,
	}

	if cfg.OpenAIAPIKey != "" {
		chat, err := aichat.NewClient(aichat.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure chat client")
		}
		app.ChatClient = chat
		logger.Info().Str("model", chat.Model()).Msg("chat assistant enabled")
	} else {
		logger.Warn().Msg("OPENAI_API_KEY missing, chat assistant disabled")
	}

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Gate:           gate.New(users, clinics, trial, gate.DefaultPaths(), logger),
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  countryLookup,
		RateLimit:      cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
