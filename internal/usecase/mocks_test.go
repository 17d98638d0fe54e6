// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu sync.Mutex

	InitiateFunc func(ctx context.Context, phone string, amountKES int64, reference string) (adapter.InitiationResult, error)
	PollFunc     func(ctx context.Context, requestID string) (adapter.StatusResult, error)
	VerifyFunc   func(ctx context.Context, reference string) (adapter.StatusResult, error)

	InitiateCalls int
	PollCalls     int
	VerifyCalls   int
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Initiate(ctx context.Context, phone string, amountKES int64, reference string) (adapter.InitiationResult, error) {
	m.mu.Lock()
	m.InitiateCalls++
	m.mu.Unlock()
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, phone, amountKES, reference)
	}
	return adapter.InitiationResult{Accepted: true, RequestID: "req-1"}, nil
}

func (m *MockGateway) PollStatus(ctx context.Context, requestID string) (adapter.StatusResult, error) {
	m.mu.Lock()
	m.PollCalls++
	m.mu.Unlock()
	if m.PollFunc != nil {
		return m.PollFunc(ctx, requestID)
	}
	return adapter.StatusResult{Status: adapter.SettlementSuccess}, nil
}

func (m *MockGateway) VerifyByReference(ctx context.Context, reference string) (adapter.StatusResult, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	return adapter.StatusResult{Status: adapter.SettlementSuccess}, nil
}

func (m *MockGateway) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PollCalls
}

func (m *MockGateway) Verifies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.VerifyCalls
}

// ---- in-memory PurchaseRepository ----

type memPurchaseRepo struct {
	mu      sync.RWMutex
	rec     *model.PurchaseRecord
	saveErr error
	saves   int
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{}
}

func (m *memPurchaseRepo) Save(ctx context.Context, rec *model.PurchaseRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rec = &cp
	m.saves++
	return nil
}

func (m *memPurchaseRepo) Find(ctx context.Context) (*model.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rec == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.rec
	return &cp, nil
}

func (m *memPurchaseRepo) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

func (m *memPurchaseRepo) Record() *model.PurchaseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rec == nil {
		return nil
	}
	cp := *m.rec
	return &cp
}

// ---- in-memory PricingFeedRepository ----

type memFeedRepo struct {
	mu      sync.RWMutex
	feed    []string
	loadErr error
}

func newMemFeedRepo() *memFeedRepo { return &memFeedRepo{} }

func (m *memFeedRepo) Load(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.feed == nil {
		return nil, domain.ErrNotFound
	}
	out := make([]string, len(m.feed))
	copy(out, m.feed)
	return out, nil
}

func (m *memFeedRepo) Store(ctx context.Context, feed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feed = append([]string(nil), feed...)
	return nil
}

// ---- in-memory LedgerRepository ----

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.LedgerEntry
}

func newMemLedgerRepo() *memLedgerRepo { return &memLedgerRepo{} }

func (m *memLedgerRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLedgerRepo) ListRecent(ctx context.Context, limit int) ([]*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *memLedgerRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ---- notifier that exposes state changes on a channel ----

type chanNotifier struct {
	mu      sync.Mutex
	changes []adapter.StateChange
	ch      chan adapter.StateChange
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{ch: make(chan adapter.StateChange, 32)}
}

func (n *chanNotifier) Notify(ctx context.Context, c adapter.StateChange) {
	n.mu.Lock()
	n.changes = append(n.changes, c)
	n.mu.Unlock()
	select {
	case n.ch <- c:
	default:
	}
}

func (n *chanNotifier) All() []adapter.StateChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]adapter.StateChange, len(n.changes))
	copy(out, n.changes)
	return out
}
