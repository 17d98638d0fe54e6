package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidPlan        = errors.New("unknown plan tier")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	ErrInvalidTransition  = errors.New("transition not allowed in current state")
	ErrCheckoutInFlight   = errors.New("a payment submission is already in flight")
	ErrNoActiveSession    = errors.New("no active checkout session")

	// Gateway errors
	ErrGatewayUnavailable  = errors.New("payment gateway unreachable")
	ErrGatewayRejected     = errors.New("payment gateway rejected the request")
	ErrConfirmationTimeout = errors.New("payment confirmation timed out")
)
