// Package repositories provides PostgreSQL data access behind interfaces so
// services can be tested against fakes.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/database"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// SubscriptionRepository defines the interface for subscription data access.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	Upsert(ctx context.Context, sub *models.Subscription) error
}

// subscriptionRepository implements SubscriptionRepository using PostgreSQL.
type subscriptionRepository struct {
	db *database.DB
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *database.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `user_id, tier, stripe_customer_id, stripe_subscription_id, status, current_period_end, scan_limit, created_at, updated_at`

// GetByUserID retrieves a subscription row by user id.
// Returns apperrors.ErrNotFound when the user has no row (free tier).
func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetByStripeCustomerID retrieves a subscription row by Stripe customer id.
// Used by the webhook flow, which only knows the processor's identifiers.
func (r *subscriptionRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_customer_id = $1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription by customer: %w", err)
	}
	return sub, nil
}

// Upsert writes a subscription row, creating it on first write.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (user_id, tier, stripe_customer_id, stripe_subscription_id, status, current_period_end, scan_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    stripe_customer_id = EXCLUDED.stripe_customer_id,
		    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		    status = EXCLUDED.status,
		    current_period_end = EXCLUDED.current_period_end,
		    scan_limit = EXCLUDED.scan_limit,
		    updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		sub.UserID,
		sub.Tier,
		sub.StripeCustomerID,
		sub.StripeSubscriptionID,
		sub.Status,
		sub.CurrentPeriodEnd,
		sub.ScanLimit,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(
		&sub.UserID,
		&sub.Tier,
		&sub.StripeCustomerID,
		&sub.StripeSubscriptionID,
		&sub.Status,
		&sub.CurrentPeriodEnd,
		&sub.ScanLimit,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
