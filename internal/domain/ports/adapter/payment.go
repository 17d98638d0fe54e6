package adapter

import (
	"context"
)

// SettlementStatus is the three-way outcome every gateway response is
// normalized to. The observed gateway answers with a mix of vocabularies
// (status, ResultCode, payment_status); none of that leaks past the adapter.
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSuccess SettlementStatus = "success"
	SettlementFailed  SettlementStatus = "failed"
)

// InitiationResult is the gateway's acknowledgment of an STK-push request.
type InitiationResult struct {
	Accepted  bool
	RequestID string // gateway-issued checkout request id
	Message   string // gateway message, if any
}

// StatusResult is a normalized poll/verify answer.
type StatusResult struct {
	Status SettlementStatus
	Reason string // populated on failed, echoed from the gateway when available
}

// PaymentGateway is the hex port for the STK-push provider.
//
// Initiate pushes a payment prompt to the payer's phone. A transport/HTTP
// failure is returned as a wrapped domain.ErrGatewayUnavailable; a
// gateway-level rejection as domain.ErrGatewayRejected. PollStatus and
// VerifyByReference are side-effect-free on the provider and safe to retry.
type PaymentGateway interface {
	Name() string

	Initiate(ctx context.Context, phone string, amountKES int64, reference string) (InitiationResult, error)
	PollStatus(ctx context.Context, requestID string) (StatusResult, error)
	VerifyByReference(ctx context.Context, reference string) (StatusResult, error)
}
