package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/retry"
)

// SubscriptionSummary is the resolved view of a user's subscription plus
// current usage. Fallback is set when the backing store was unreachable and
// the summary is a synthesized free-tier default that may be stale.
type SubscriptionSummary struct {
	Tier      string     `json:"tier"`
	Status    string     `json:"status,omitempty"`
	ScansUsed int        `json:"scans_used"`
	ScanLimit *int       `json:"scan_limit"` // nil = unlimited
	PeriodEnd *time.Time `json:"period_end,omitempty"`
	Fallback  bool       `json:"fallback,omitempty"`
}

// SubscriptionSyncer reconciles the local subscription row against the
// payment processor's authoritative view. Implemented by BillingService;
// nil when billing is not configured.
type SubscriptionSyncer interface {
	SyncSubscription(ctx context.Context, userID uuid.UUID) error
}

// SubscriptionService resolves subscription state for users.
type SubscriptionService interface {
	// Resolve returns the user's subscription summary, synthesizing a
	// free-tier default when no row exists.
	Resolve(ctx context.Context, userID uuid.UUID) (*SubscriptionSummary, error)

	// Refresh reconciles against the payment processor and re-resolves.
	// Calls within the cool-down window share one result instead of
	// issuing repeated reads.
	Refresh(ctx context.Context, userID uuid.UUID) (*SubscriptionSummary, error)
}

// refreshEntry tracks one user's refresh cool-down state.
type refreshEntry struct {
	done    chan struct{}
	summary *SubscriptionSummary
	err     error
	at      time.Time
}

// subscriptionService implements SubscriptionService.
type subscriptionService struct {
	subs     repositories.SubscriptionRepository
	usage    repositories.UsageRepository
	syncer   SubscriptionSyncer
	retryCfg *retry.Config
	cooldown time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu        sync.Mutex
	refreshes map[uuid.UUID]*refreshEntry
}

// NewSubscriptionService creates a subscription service. syncer may be nil
// when billing is not configured; Refresh then just re-reads local state.
func NewSubscriptionService(
	subs repositories.SubscriptionRepository,
	usage repositories.UsageRepository,
	syncer SubscriptionSyncer,
	cooldown time.Duration,
	logger *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		subs:      subs,
		usage:     usage,
		syncer:    syncer,
		retryCfg:  retry.DefaultConfig(),
		cooldown:  cooldown,
		now:       time.Now,
		logger:    logger,
		refreshes: make(map[uuid.UUID]*refreshEntry),
	}
}

// Resolve returns the user's subscription summary.
// Missing rows resolve to the free-tier default without error. Transient
// read failures are retried with exponential backoff; after exhaustion the
// free-tier default is returned with Fallback set so the UI can warn that
// the data may be stale.
func (s *subscriptionService) Resolve(ctx context.Context, userID uuid.UUID) (*SubscriptionSummary, error) {
	sub, err := retry.DoWithResult(ctx, s.retryCfg, func() (*models.Subscription, error) {
		sub, err := s.subs.GetByUserID(ctx, userID)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Lazily synthesized; not persisted until first write.
			return models.DefaultSubscription(userID), nil
		}
		return sub, err
	})

	fallback := false
	if err != nil {
		s.logger.Warn("subscription read failed after retries, using free default",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		sub = models.DefaultSubscription(userID)
		fallback = true
	}

	tier := sub.EffectiveTier()
	limit := sub.ScanLimit
	if models.IsPaidTier(tier) {
		limit = nil
	} else if limit == nil {
		limit = models.ScanLimitForTier(models.TierFree)
	}

	used, err := s.usage.Get(ctx, models.UserIdentity(userID).Key(), models.CurrentPeriod(s.now()))
	if err != nil {
		s.logger.Warn("usage counter read failed during subscription resolve",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		used = 0
	}

	return &SubscriptionSummary{
		Tier:      tier,
		Status:    sub.Status,
		ScansUsed: used,
		ScanLimit: limit,
		PeriodEnd: sub.CurrentPeriodEnd,
		Fallback:  fallback,
	}, nil
}

// Refresh reconciles against the payment processor, throttled by the
// cool-down window. A second caller inside the window gets the cached
// summary; a caller racing an in-flight refresh waits for its result.
func (s *subscriptionService) Refresh(ctx context.Context, userID uuid.UUID) (*SubscriptionSummary, error) {
	s.mu.Lock()
	if entry, ok := s.refreshes[userID]; ok {
		select {
		case <-entry.done:
			if s.now().Sub(entry.at) < s.cooldown {
				s.mu.Unlock()
				return entry.summary, entry.err
			}
			// Cool-down expired; fall through and start a new refresh.
		default:
			// Refresh in flight; wait for it outside the lock.
			s.mu.Unlock()
			select {
			case <-entry.done:
				return entry.summary, entry.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	entry := &refreshEntry{done: make(chan struct{})}
	s.refreshes[userID] = entry
	s.mu.Unlock()

	entry.summary, entry.err = s.doRefresh(ctx, userID)
	entry.at = s.now()
	close(entry.done)

	return entry.summary, entry.err
}

// doRefresh performs one reconcile-and-resolve pass.
func (s *subscriptionService) doRefresh(ctx context.Context, userID uuid.UUID) (*SubscriptionSummary, error) {
	if s.syncer != nil {
		if err := s.syncer.SyncSubscription(ctx, userID); err != nil {
			// Reconciliation failure is not fatal; local state still resolves.
			s.logger.Warn("subscription sync against payment processor failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
	return s.Resolve(ctx, userID)
}
