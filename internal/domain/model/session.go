package model

import (
	"github.com/shopspring/decimal"
)

// CheckoutState is the lifecycle state of a checkout session.
type CheckoutState string

const (
	StateIdle                CheckoutState = "idle"
	StatePlanSelected        CheckoutState = "plan_selected"
	StateAwaitingPhoneInput  CheckoutState = "awaiting_phone_input"
	StateSubmitting          CheckoutState = "submitting"
	StateWaitingConfirmation CheckoutState = "waiting_confirmation"
	StateSucceeded           CheckoutState = "succeeded"
	StateFailed              CheckoutState = "failed"
	StateTimedOut            CheckoutState = "timed_out"
)

// Terminal reports whether no further automatic transition happens from s.
func (s CheckoutState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// CheckoutSession is one purchase attempt. Exactly one session is active at
// a time; the lifecycle use case owns it for its whole life.
type CheckoutSession struct {
	ID        string // ULID
	State     CheckoutState
	Plan      *Plan
	KESAmount decimal.Decimal // display amount, 2 decimals
	KESUnits  int64           // integral amount sent to the gateway
	Phone     MSISDN
	Reference string // locally generated, unique per submission
	RequestID string // gateway-issued checkout request id, if any
}

// transitions lists the allowed state graph. Terminal states re-enter
// AwaitingPhoneInput via an explicit retry; cancel is handled separately
// because it is valid from any non-terminal state.
var transitions = map[CheckoutState][]CheckoutState{
	StateIdle:                {StatePlanSelected},
	StatePlanSelected:        {StateAwaitingPhoneInput},
	StateAwaitingPhoneInput:  {StateSubmitting},
	StateSubmitting:          {StateWaitingConfirmation, StateFailed},
	StateWaitingConfirmation: {StateSucceeded, StateFailed, StateTimedOut},
	StateSucceeded:           {StatePlanSelected, StateAwaitingPhoneInput},
	StateFailed:              {StatePlanSelected, StateAwaitingPhoneInput},
	StateTimedOut:            {StatePlanSelected, StateAwaitingPhoneInput},
}

// CanTransition reports whether moving from the current state to next is
// allowed by the state graph.
func (s *CheckoutSession) CanTransition(next CheckoutState) bool {
	for _, allowed := range transitions[s.State] {
		if allowed == next {
			return true
		}
	}
	return false
}
