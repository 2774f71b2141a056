// Package services contains the business logic of scanmatch-engine: usage
// gating, subscription resolution, scan orchestration, coaching, billing,
// and accounts. Services depend on repository and client interfaces so they
// can be tested against fakes.
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
)

// Decision is the usage gate's answer for one scan attempt.
type Decision struct {
	Allowed bool
	Used    int
	Limit   *int // nil = unlimited
	// Degraded is set when the counter could not be read and the gate
	// chose availability over enforcement.
	Degraded bool
}

// UsageGate decides whether an identity may perform a scan.
//
// The check in Allow and the increment in Record are deliberately separate
// statements: two concurrent scans from the same identity can both pass the
// check before either records. The limit is a soft, advisory cap.
type UsageGate interface {
	Allow(ctx context.Context, identity models.Identity, tier string) (Decision, error)
	Record(ctx context.Context, identity models.Identity) error
}

// usageGate implements UsageGate over the usage counter repository.
type usageGate struct {
	usage     repositories.UsageRepository
	freeLimit int
	anonLimit int
	now       func() time.Time
	logger    *zap.Logger
}

// NewUsageGate creates a usage gate with the given free-tier limits.
func NewUsageGate(usage repositories.UsageRepository, freeLimit, anonLimit int, logger *zap.Logger) UsageGate {
	return &usageGate{
		usage:     usage,
		freeLimit: freeLimit,
		anonLimit: anonLimit,
		now:       time.Now,
		logger:    logger,
	}
}

// Allow answers whether the identity may scan right now.
// Paid tiers always pass. Free-tier identities pass while their counter is
// under the limit. If the counter read fails, the gate degrades to allow and
// flags the decision rather than blocking the user on a storage error.
func (g *usageGate) Allow(ctx context.Context, identity models.Identity, tier string) (Decision, error) {
	if models.IsPaidTier(tier) {
		return Decision{Allowed: true}, nil
	}

	limit := g.freeLimit
	if identity.IsAnonymous() {
		limit = g.anonLimit
	}

	used, err := g.usage.Get(ctx, identity.Key(), models.CurrentPeriod(g.now()))
	if err != nil {
		g.logger.Warn("usage counter read failed, allowing scan",
			zap.String("identity", identity.Key()),
			zap.Error(err))
		return Decision{Allowed: true, Limit: &limit, Degraded: true}, nil
	}

	return Decision{
		Allowed: used < limit,
		Used:    used,
		Limit:   &limit,
	}, nil
}

// Record increments the identity's counter after a successful scan.
func (g *usageGate) Record(ctx context.Context, identity models.Identity) error {
	if err := g.usage.Increment(ctx, identity.Key(), models.CurrentPeriod(g.now())); err != nil {
		return fmt.Errorf("failed to record scan usage: %w", err)
	}
	return nil
}
