package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // confirmation outcome unknown; may settle out-of-band
	PaymentStatusSuccess PaymentStatus = "success" // confirmed at the gateway
	PaymentStatusFailed  PaymentStatus = "failed"  // rejected, or initiation failed
)

// PurchaseRecord is the persisted outcome of a checkout attempt. Only a
// record with status "success" unlocks plan access; absence or any other
// status never does. Field names match the legacy "boughtaccount" payload.
type PurchaseRecord struct {
	Plan          PlanTier      `json:"plan"`
	PriceUSD      string        `json:"price"`
	KESAmount     string        `json:"kshAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Reference     string        `json:"reference"`
	PurchaseDate  time.Time     `json:"purchaseDate"`
	Timestamp     int64         `json:"timestamp"` // unix milliseconds
	Reason        string        `json:"reason,omitempty"`
}

// Unlocks reports whether this record grants access to the purchased plan.
func (r *PurchaseRecord) Unlocks() bool {
	return r != nil && r.PaymentStatus == PaymentStatusSuccess
}

// LedgerEntry is one row of the append-only purchase trail. Unlike the
// single gating PurchaseRecord it is never overwritten, so it preserves the
// history of retried and failed attempts.
type LedgerEntry struct {
	ID        string // UUID
	SessionID string // ULID of the checkout session
	Plan      PlanTier
	PriceUSD  string
	KESAmount string
	Status    PaymentStatus
	Reference string
	Reason    string
	CreatedAt time.Time
}
