package adapter

import (
	"context"

	"remo-checkout/internal/domain/model"
)

// StateChange is the notification emitted every time the checkout session
// enters a new state. It carries everything a renderer needs (plan info,
// amounts, user-facing message) without assuming any rendering technology.
type StateChange struct {
	SessionID string
	State     model.CheckoutState
	Plan      model.PlanTier
	PriceUSD  string
	KESAmount string
	Reference string
	Message   string // user-facing text, e.g. a failure reason or timeout advice
}

// UINotifier is the hex port for whatever surface renders the flow.
type UINotifier interface {
	Notify(ctx context.Context, change StateChange)
}
