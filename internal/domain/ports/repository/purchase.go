package repository

import (
	"context"

	"remo-checkout/internal/domain/model"
)

// PurchaseRepository is the port for the single gating purchase record.
// Writes are whole-record replacements, so concurrent readers see either
// the prior or the new value, never a torn one.
type PurchaseRepository interface {
	Save(ctx context.Context, rec *model.PurchaseRecord) error
	Find(ctx context.Context) (*model.PurchaseRecord, error)
	Clear(ctx context.Context) error
}

// LedgerRepository appends terminal resolutions to the historical purchase
// trail. Best-effort: a ledger failure never blocks the checkout.
type LedgerRepository interface {
	Append(ctx context.Context, entry *model.LedgerEntry) error
	ListRecent(ctx context.Context, limit int) ([]*model.LedgerEntry, error)
}
