package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/database"
)

// UsageRepository defines the interface for usage counter data access.
type UsageRepository interface {
	// Get returns the scan count for an identity key in a period.
	// A missing counter reads as zero.
	Get(ctx context.Context, identityKey, period string) (int, error)

	// Increment adds one to the counter, creating it if absent.
	// The increment itself never loses writes; the surrounding
	// check-then-increment in the usage gate is deliberately not atomic.
	Increment(ctx context.Context, identityKey, period string) error
}

// usageRepository implements UsageRepository using PostgreSQL.
type usageRepository struct {
	db *database.DB
}

// NewUsageRepository creates a new usage repository.
func NewUsageRepository(db *database.DB) UsageRepository {
	return &usageRepository{db: db}
}

// Get returns the current count for (identity, period); zero when no row.
func (r *usageRepository) Get(ctx context.Context, identityKey, period string) (int, error) {
	query := `SELECT count FROM usage_counters WHERE identity = $1 AND period = $2`

	var count int
	err := r.db.QueryRow(ctx, query, identityKey, period).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage counter: %w", err)
	}

	return count, nil
}

// Increment bumps the counter for (identity, period), creating it on first use.
func (r *usageRepository) Increment(ctx context.Context, identityKey, period string) error {
	query := `
		INSERT INTO usage_counters (identity, period, count, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (identity, period) DO UPDATE
		SET count = usage_counters.count + 1,
		    updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, identityKey, period, time.Now()); err != nil {
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}

	return nil
}
