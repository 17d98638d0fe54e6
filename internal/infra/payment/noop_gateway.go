package payment

import (
	"context"
	"fmt"
	"sync"

	"remo-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a simple in-memory gateway for dev mode and tests. Every
// initiation is accepted and settles successfully after SettleAfter polls.
type NoopGateway struct {
	mu      sync.Mutex
	seq     int64
	polls   map[string]int    // request id -> polls seen so far
	byRef   map[string]string // reference -> request id
	// SettleAfter is how many poll/verify calls return pending before success.
	SettleAfter int
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{
		polls:       make(map[string]int),
		byRef:       make(map[string]string),
		SettleAfter: 1,
	}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) Initiate(ctx context.Context, phone string, amountKES int64, reference string) (adapter.InitiationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("noop-%d", g.seq)
	g.polls[id] = 0
	g.byRef[reference] = id
	return adapter.InitiationResult{Accepted: true, RequestID: id}, nil
}

func (g *NoopGateway) PollStatus(ctx context.Context, requestID string) (adapter.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.polls[requestID]
	if !ok {
		return adapter.StatusResult{Status: adapter.SettlementFailed, Reason: "unknown request"}, nil
	}
	g.polls[requestID] = n + 1
	if n+1 >= g.SettleAfter {
		return adapter.StatusResult{Status: adapter.SettlementSuccess}, nil
	}
	return adapter.StatusResult{Status: adapter.SettlementPending}, nil
}

func (g *NoopGateway) VerifyByReference(ctx context.Context, reference string) (adapter.StatusResult, error) {
	g.mu.Lock()
	id, ok := g.byRef[reference]
	g.mu.Unlock()
	if !ok {
		return adapter.StatusResult{Status: adapter.SettlementFailed, Reason: "unknown reference"}, nil
	}
	return g.PollStatus(ctx, id)
}
