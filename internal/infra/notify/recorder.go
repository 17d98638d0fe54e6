package notify

import (
	"context"
	"sync"

	"remo-checkout/internal/domain/ports/adapter"
)

var _ adapter.UINotifier = (*Recorder)(nil)

// Recorder keeps the most recent state change so a polling UI (the HTTP
// state endpoint) can render the current step of the flow.
type Recorder struct {
	mu   sync.RWMutex
	last *adapter.StateChange
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(ctx context.Context, c adapter.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := c
	r.last = &cp
}

// Last returns the most recent state change, or nil before the first one.
func (r *Recorder) Last() *adapter.StateChange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	cp := *r.last
	return &cp
}

var _ adapter.UINotifier = (MultiNotifier)(nil)

// MultiNotifier fans a notification out to several surfaces.
type MultiNotifier []adapter.UINotifier

func (m MultiNotifier) Notify(ctx context.Context, c adapter.StateChange) {
	for _, n := range m {
		n.Notify(ctx, c)
	}
}
