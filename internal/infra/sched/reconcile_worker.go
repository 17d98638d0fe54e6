package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/adapter"
	"remo-checkout/internal/domain/ports/repository"
)

// PurchaseReconciler periodically re-checks a persisted pending purchase
// record against the gateway via verify-by-reference. This covers the
// TimedOut case where the payer completed the STK prompt after the
// confirmation budget ran out.
type PurchaseReconciler struct {
	purchases  repository.PurchaseRepository
	gateway    adapter.PaymentGateway
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending record must be to retry
	log        *zerolog.Logger
}

func NewPurchaseReconciler(purchases repository.PurchaseRepository, gateway adapter.PaymentGateway, interval, staleAfter time.Duration, logger *zerolog.Logger) *PurchaseReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PurchaseReconciler{purchases: purchases, gateway: gateway, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PurchaseReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PurchaseReconciler) tick(ctx context.Context) {
	rec, err := w.purchases.Find(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.log.Warn().Err(err).Msg("reconciler: purchase read failed")
		}
		return
	}
	if rec.PaymentStatus != model.PaymentStatusPending || rec.Reference == "" {
		return
	}
	if time.Since(rec.PurchaseDate) < w.staleAfter {
		return
	}

	res, err := w.gateway.VerifyByReference(ctx, rec.Reference)
	if err != nil {
		w.log.Warn().Err(err).Str("reference", rec.Reference).Msg("reconciler: verify failed")
		return
	}

	switch res.Status {
	case adapter.SettlementSuccess:
		rec.PaymentStatus = model.PaymentStatusSuccess
		rec.Reason = ""
	case adapter.SettlementFailed:
		rec.PaymentStatus = model.PaymentStatusFailed
		rec.Reason = res.Reason
	default:
		return // still pending
	}
	if err := w.purchases.Save(ctx, rec); err != nil {
		w.log.Error().Err(err).Str("reference", rec.Reference).Msg("reconciler: record update failed")
		return
	}
	w.log.Info().Str("reference", rec.Reference).Str("status", string(rec.PaymentStatus)).Msg("reconciler: pending purchase settled")
}
