package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	portalsession "github.com/stripe/stripe-go/v78/billingportal/session"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"
	"github.com/stripe/stripe-go/v78/subscription"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/config"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
)

// BillingService wraps the payment processor: checkout, customer portal,
// webhook reconciliation, and on-demand subscription sync.
type BillingService interface {
	// CreateCheckoutSession returns a redirect URL for upgrading to a paid tier.
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, tier string) (string, error)

	// CreatePortalSession returns a redirect URL to the customer portal.
	CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error)

	// HandleWebhook verifies and applies a payment processor event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// VerifyCheckoutSession reconciles a completed checkout session to the
	// user's subscription row. Called from the post-checkout redirect.
	VerifyCheckoutSession(ctx context.Context, userID uuid.UUID, sessionID string) error

	SubscriptionSyncer
}

// billingService implements BillingService using Stripe.
type billingService struct {
	cfg      *config.StripeConfig
	subs     repositories.SubscriptionRepository
	accounts repositories.AccountRepository
	logger   *zap.Logger
}

// NewBillingService creates a billing service.
// The caller is responsible for setting stripe.Key before use.
func NewBillingService(
	cfg *config.StripeConfig,
	subs repositories.SubscriptionRepository,
	accounts repositories.AccountRepository,
	logger *zap.Logger,
) BillingService {
	return &billingService{
		cfg:      cfg,
		subs:     subs,
		accounts: accounts,
		logger:   logger,
	}
}

// CreateCheckoutSession creates a Stripe checkout session for a paid tier.
func (b *billingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, tier string) (string, error) {
	priceID := b.cfg.PriceIDForTier(tier)
	if priceID == "" {
		return "", fmt.Errorf("%w: no price configured for tier %q", apperrors.ErrValidation, tier)
	}

	sub, err := b.getOrDefaultSubscription(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub.IsActive() {
		return "", fmt.Errorf("%w: subscription already active", apperrors.ErrConflict)
	}

	customerID, err := b.ensureCustomer(ctx, userID, sub)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(b.cfg.SuccessURL),
		CancelURL:         stripe.String(b.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}

	sess, err := session.New(params)
	if err != nil {
		b.logger.Error("failed to create checkout session",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.URL, nil
}

// CreatePortalSession creates a Stripe customer-portal session.
func (b *billingService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := b.getOrDefaultSubscription(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no billing record for user", apperrors.ErrNotFound)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.StripeCustomerID),
		ReturnURL: stripe.String(b.cfg.PortalReturnURL),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		b.logger.Error("failed to create portal session",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return sess.URL, nil
}

// HandleWebhook verifies the event signature and applies subscription
// lifecycle events to the local row. Unknown event types are logged and
// ignored.
func (b *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, b.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("failed to decode checkout session: %w", err)
		}
		if sess.Customer == nil || sess.Subscription == nil {
			return fmt.Errorf("checkout session missing customer or subscription")
		}

		stripeSub, err := subscription.Get(sess.Subscription.ID, nil)
		if err != nil {
			return fmt.Errorf("failed to fetch subscription: %w", err)
		}

		return b.applySubscription(ctx, sess.Customer.ID, stripeSub)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return fmt.Errorf("failed to decode subscription: %w", err)
		}
		if stripeSub.Customer == nil {
			return fmt.Errorf("subscription event missing customer")
		}

		return b.applySubscription(ctx, stripeSub.Customer.ID, &stripeSub)

	default:
		b.logger.Info("ignoring unhandled webhook event",
			zap.String("event_type", string(event.Type)))
		return nil
	}
}

// VerifyCheckoutSession reconciles a checkout session id against the user's
// subscription row after the success redirect.
func (b *billingService) VerifyCheckoutSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch checkout session: %w", err)
	}

	if sess.ClientReferenceID != userID.String() {
		return fmt.Errorf("%w: checkout session belongs to another user", apperrors.ErrNotFound)
	}
	if sess.Status != stripe.CheckoutSessionStatusComplete || sess.Subscription == nil {
		return apperrors.ErrCheckoutNotCompleted
	}

	stripeSub, err := subscription.Get(sess.Subscription.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}

	return b.applySubscription(ctx, sess.Customer.ID, stripeSub)
}

// SyncSubscription refreshes the local row from Stripe's view. Users with
// no Stripe subscription have nothing to sync.
func (b *billingService) SyncSubscription(ctx context.Context, userID uuid.UUID) error {
	sub, err := b.getOrDefaultSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID == "" {
		return nil
	}

	stripeSub, err := subscription.Get(sub.StripeSubscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}

	return b.applySubscription(ctx, sub.StripeCustomerID, stripeSub)
}

// applySubscription writes the processor's view of a subscription onto the
// local row identified by Stripe customer id. The row always exists by the
// time events arrive: checkout persists it when the customer is first minted.
func (b *billingService) applySubscription(ctx context.Context, customerID string, stripeSub *stripe.Subscription) error {
	sub, err := b.subs.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to find subscription for customer %s: %w", customerID, err)
	}

	tier := b.tierFromSubscription(stripeSub)
	periodEnd := time.Unix(stripeSub.CurrentPeriodEnd, 0)

	sub.Tier = tier
	sub.StripeSubscriptionID = stripeSub.ID
	sub.Status = string(stripeSub.Status)
	sub.CurrentPeriodEnd = &periodEnd
	sub.ScanLimit = models.ScanLimitForTier(tier)

	if err := b.subs.Upsert(ctx, sub); err != nil {
		return err
	}

	b.logger.Info("applied subscription update",
		zap.String("user_id", sub.UserID.String()),
		zap.String("tier", tier),
		zap.String("status", sub.Status))

	return nil
}

// tierFromSubscription maps the subscription's price to a tier. Canceled or
// unpaid subscriptions resolve to free regardless of price.
func (b *billingService) tierFromSubscription(stripeSub *stripe.Subscription) string {
	switch stripeSub.Status {
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return models.TierFree
	}

	if stripeSub.Items != nil {
		for _, item := range stripeSub.Items.Data {
			if item.Price == nil {
				continue
			}
			if tier := b.cfg.TierForPriceID(item.Price.ID); tier != "" {
				return tier
			}
		}
	}

	b.logger.Warn("subscription price does not map to a known tier",
		zap.String("subscription_id", stripeSub.ID))
	return models.TierFree
}

// getOrDefaultSubscription loads the user's subscription row, synthesizing
// the unpersisted free default when absent.
func (b *billingService) getOrDefaultSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := b.subs.GetByUserID(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DefaultSubscription(userID), nil
	}
	return nil, err
}

// ensureCustomer returns the user's Stripe customer id, creating the
// customer and persisting the row on first use.
func (b *billingService) ensureCustomer(ctx context.Context, userID uuid.UUID, sub *models.Subscription) (string, error) {
	if sub.StripeCustomerID != "" {
		return sub.StripeCustomerID, nil
	}

	account, err := b.accounts.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}

	c, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(account.Email),
	})
	if err != nil {
		b.logger.Error("failed to create stripe customer",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return "", fmt.Errorf("failed to create customer: %w", err)
	}

	sub.StripeCustomerID = c.ID
	if err := b.subs.Upsert(ctx, sub); err != nil {
		return "", err
	}

	return c.ID, nil
}
