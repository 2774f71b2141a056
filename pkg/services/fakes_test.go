package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// fakeUsageRepo is an in-memory usage counter store.
type fakeUsageRepo struct {
	mu     sync.Mutex
	counts map[string]int

	getErr       error
	incrementErr error
	increments   int
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{counts: make(map[string]int)}
}

func (f *fakeUsageRepo) Get(ctx context.Context, identityKey, period string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.counts[identityKey+"|"+period], nil
}

func (f *fakeUsageRepo) Increment(ctx context.Context, identityKey, period string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	f.counts[identityKey+"|"+period]++
	f.increments++
	return nil
}

func (f *fakeUsageRepo) set(identityKey, period string, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[identityKey+"|"+period] = count
}

// fakeSubscriptionRepo is an in-memory subscription store.
type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*models.Subscription

	getErr   error
	getCalls int
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uuid.UUID]*models.Subscription)}
}

func (f *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubscriptionRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.StripeCustomerID == customerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[sub.UserID] = &cp
	return nil
}

// fakeScanRepo is an in-memory scan store.
type fakeScanRepo struct {
	mu    sync.Mutex
	scans []*models.Scan

	createErr error
}

func newFakeScanRepo() *fakeScanRepo {
	return &fakeScanRepo{}
}

func (f *fakeScanRepo) Create(ctx context.Context, scan *models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	cp := *scan
	f.scans = append(f.scans, &cp)
	return nil
}

func (f *fakeScanRepo) GetByID(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.scans {
		if s.ID == scanID && s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeScanRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Scan
	for i := len(f.scans) - 1; i >= 0; i-- {
		if f.scans[i].UserID == userID {
			cp := *f.scans[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeScanRepo) Delete(ctx context.Context, userID, scanID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.scans {
		if s.ID == scanID && s.UserID == userID {
			f.scans = append(f.scans[:i], f.scans[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// fakeChatRepo is an in-memory append-only transcript store.
type fakeChatRepo struct {
	mu       sync.Mutex
	messages []*models.ChatMessage
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{}
}

func (f *fakeChatRepo) Append(ctx context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeChatRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeChatRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

// fakeAccountRepo is an in-memory account store.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.Account)}
}

func (f *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[account.Email]; exists {
		return apperrors.ErrConflict
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	cp := *account
	f.accounts[account.Email] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.ID == id {
			cp := *account
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// fakeSyncer records SyncSubscription calls.
type fakeSyncer struct {
	mu    sync.Mutex
	calls int
	err   error
	apply func(userID uuid.UUID)
}

func (f *fakeSyncer) SyncSubscription(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.apply != nil {
		f.apply(userID)
	}
	return f.err
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
