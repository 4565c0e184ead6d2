// Package billing connects the plan catalog to Stripe. Plan purchases happen
// on Stripe's hosted checkout; the webhook is the only path that writes paid
// plans back onto user rows.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"clinicd/internal/domain"
)

// ErrWebhookSecretMissing is returned when webhook verification is attempted
// without a configured signing secret.
var ErrWebhookSecretMissing = errors.New("stripe webhook secret not configured")

// Config carries the Stripe keys and the price-to-plan bindings.
type Config struct {
	SecretKey         string
	WebhookSecret     string
	PriceBasico       string
	PriceProfissional string
}

// Service maps Stripe prices and events onto plan assignments.
type Service struct {
	users         domain.UserRepository
	webhookSecret string
	prices        map[string]domain.Plan
	logger        zerolog.Logger
}

func NewService(users domain.UserRepository, cfg Config, logger zerolog.Logger) *Service {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	prices := make(map[string]domain.Plan, 2)
	if cfg.PriceBasico != "" {
		prices[cfg.PriceBasico] = domain.PlanBasico
	}
	if cfg.PriceProfissional != "" {
		prices[cfg.PriceProfissional] = domain.PlanProfissional
	}
	return &Service{
		users:         users,
		webhookSecret: cfg.WebhookSecret,
		prices:        prices,
		logger:        logger,
	}
}

// PlanForPrice resolves a Stripe price id to the paid plan it sells.
func (s *Service) PlanForPrice(priceID string) (domain.Plan, bool) {
	p, ok := s.prices[priceID]
	return p, ok
}

// VerifyEvent checks the webhook signature and parses the event payload.
func (s *Service) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
}

// HandleEvent applies a verified event to the user rows. Events this service
// does not care about are acknowledged silently so Stripe stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("parse checkout session: %w", err)
		}
		return s.applyCheckout(ctx, &sess)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription: %w", err)
		}
		return s.applySubscription(ctx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("parse subscription: %w", err)
		}
		return s.clearSubscription(ctx, &sub)
	}

	s.logger.Debug().Str("type", string(event.Type)).Msg("billing: event ignored")
	return nil
}

func (s *Service) applyCheckout(ctx context.Context, sess *stripe.CheckoutSession) error {
	userID := sess.ClientReferenceID
	if userID == "" {
		return errors.New("checkout session has no client reference id")
	}
	plan, err := domain.ParsePlan(sess.Metadata["plan"])
	if err != nil {
		return fmt.Errorf("checkout metadata: %w", err)
	}
	if plan.IsTrial() {
		return fmt.Errorf("checkout sold a trial code %q", plan)
	}

	if sess.Customer != nil && sess.Customer.ID != "" {
		if err := s.users.SetStripeCustomerID(ctx, userID, sess.Customer.ID); err != nil {
			return fmt.Errorf("record stripe customer: %w", err)
		}
	}
	if err := s.users.SetPlan(ctx, userID, &plan); err != nil {
		return fmt.Errorf("assign paid plan: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("billing: plan purchased")
	return nil
}

func (s *Service) applySubscription(ctx context.Context, sub *stripe.Subscription) error {
	userID := sub.Metadata["user_id"]
	if userID == "" {
		s.logger.Warn().Str("subscription", sub.ID).Msg("billing: subscription without user_id metadata")
		return nil
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
	default:
		// Past-due and canceled states are handled by the deleted event or by
		// Stripe's own dunning; nothing to write yet.
		return nil
	}

	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription %s has no price", sub.ID)
	}
	plan, ok := s.PlanForPrice(sub.Items.Data[0].Price.ID)
	if !ok {
		return fmt.Errorf("unknown price %q on subscription %s", sub.Items.Data[0].Price.ID, sub.ID)
	}
	if err := s.users.SetPlan(ctx, userID, &plan); err != nil {
		return fmt.Errorf("assign paid plan: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("billing: subscription updated")
	return nil
}

func (s *Service) clearSubscription(ctx context.Context, sub *stripe.Subscription) error {
	userID := sub.Metadata["user_id"]
	if userID == "" {
		s.logger.Warn().Str("subscription", sub.ID).Msg("billing: subscription without user_id metadata")
		return nil
	}
	if err := s.users.SetPlan(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear plan: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("billing: subscription canceled, plan cleared")
	return nil
}

// Checkout creates a hosted checkout session for a paid plan and returns its
// URL. The user id travels as the client reference and as subscription
// metadata so the webhook can find its way back to the row.
func (s *Service) Checkout(ctx context.Context, user *domain.User, plan domain.Plan, successURL, cancelURL string) (string, error) {
	if !plan.IsValid() || plan.IsTrial() {
		return "", fmt.Errorf("%w: %q is not purchasable", domain.ErrInvalidPlan, plan)
	}
	var priceID string
	for id, p := range s.prices {
		if p == plan {
			priceID = id
			break
		}
	}
	if priceID == "" {
		return "", fmt.Errorf("no stripe price configured for plan %q", plan)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(user.ID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": user.ID},
		},
	}
	params.AddMetadata("plan", string(plan))
	params.AddMetadata("user_id", user.ID)
	if user.StripeCustomerID != nil {
		params.Customer = stripe.String(*user.StripeCustomerID)
	} else if user.Email != "" {
		params.CustomerEmail = stripe.String(user.Email)
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}
