// Package httpapi assembles the chi router. Route policy lives here; the
// handlers never inspect paths.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"clinicd/internal/gate"
	"clinicd/internal/http/handlers"
	"clinicd/internal/middleware"
)

// Options carries the router's cross-cutting settings.
type Options struct {
	Gate           *gate.Gate
	JWTSecret      string
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	RateLimit      int
}

// NewRouter wires the HTTP surface. The cron and webhook endpoints carry their
// own authentication and stay outside the session gate; everything under the
// protected group passes through the gate's clinic and plan checks.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	// Health
	r.Get("/v1/healthz", app.Healthz)

	// Scheduler trigger, authorized by CRON_SECRET, not by a session.
	r.Post("/cron/check-subscriptions", app.CronCheckSubscriptions)
	r.Get("/cron/check-subscriptions", app.CronPing)

	// Server-side access checks for renderers and support tooling.
	r.Get("/subscription/status", app.SubscriptionStatus)

	// Stripe authenticates with its signature header.
	r.Post("/v1/billing/webhook", app.StripeWebhook)

	r.Post("/v1/auth/register", app.Register)
	r.Post("/v1/auth/login", app.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Use(opts.Gate.Protect)

		r.Get("/v1/me", app.Me)

		r.Route("/v1/clinics", func(r chi.Router) {
			r.Post("/", app.CreateClinic)
			r.Get("/", app.ListClinics)
			r.Get("/{id}", app.GetClinic)
			r.Put("/{id}", app.UpdateClinic)
		})

		r.Route("/v1/patients", func(r chi.Router) {
			r.Post("/", app.CreatePatient)
			r.Get("/", app.ListPatients)
			r.Get("/{id}", app.GetPatient)
			r.Put("/{id}", app.UpdatePatient)
			r.Delete("/{id}", app.DeletePatient)
			r.Get("/export", app.ExportPatients)
		})

		r.Route("/v1/roles", func(r chi.Router) {
			r.Post("/", app.CreateStaffRole)
			r.Get("/", app.ListStaffRoles)
			r.Delete("/{id}", app.DeleteStaffRole)
		})

		r.Route("/v1/billing", func(r chi.Router) {
			r.Get("/plans", app.ListPlans)
			r.Post("/checkout", app.Checkout)
		})

		r.Post("/v1/chat", app.Chat)
	})

	return r
}
