// File: internal/usecase/pricing_uc.go
package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"remo-checkout/internal/domain"
	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/repository"
)

// Compile-time check
var _ PricingUseCase = (*pricingUC)(nil)

// PricingUseCase resolves plan tiers to their current USD price.
type PricingUseCase interface {
	// Resolve returns the plan for a known tier, at the price loaded by the
	// last Refresh (or the hardcoded default).
	Resolve(tier model.PlanTier) (*model.Plan, error)
	// Refresh reloads the cached feed. A missing, malformed, or too-short
	// feed is absorbed: affected tiers fall back to defaults and no error
	// is returned.
	Refresh(ctx context.Context)
	// Prices returns a snapshot of the current price table.
	Prices() map[model.PlanTier]decimal.Decimal
}

type pricingUC struct {
	feed repository.PricingFeedRepository
	log  *zerolog.Logger

	mu     sync.RWMutex
	prices map[model.PlanTier]decimal.Decimal
}

func NewPricingUseCase(feed repository.PricingFeedRepository, logger *zerolog.Logger) *pricingUC {
	return &pricingUC{
		feed:   feed,
		log:    logger,
		prices: model.DefaultPrices(),
	}
}

func (u *pricingUC) Resolve(tier model.PlanTier) (*model.Plan, error) {
	if _, err := model.ParseTier(string(tier)); err != nil {
		return nil, err
	}
	u.mu.RLock()
	price := u.prices[tier]
	u.mu.RUnlock()
	return &model.Plan{Tier: tier, PriceUSD: price}, nil
}

func (u *pricingUC) Prices() map[model.PlanTier]decimal.Decimal {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[model.PlanTier]decimal.Decimal, len(u.prices))
	for t, p := range u.prices {
		out[t] = p
	}
	return out
}

// The feed must carry at least indices 0..4; tier prices sit at 2/3/4.
const minFeedLen = 5

func (u *pricingUC) Refresh(ctx context.Context) {
	feed, err := u.feed.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Debug().Msg("pricing feed absent; keeping current prices")
		} else {
			u.log.Warn().Err(err).Msg("pricing feed load failed; keeping current prices")
		}
		return
	}
	if len(feed) < minFeedLen {
		u.log.Warn().Int("len", len(feed)).Msg("pricing feed too short; keeping current prices")
		return
	}

	next := model.DefaultPrices()
	for _, tier := range model.Tiers {
		raw := feed[tier.FeedIndex()]
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			u.log.Warn().Str("tier", string(tier)).Str("raw", raw).Msg("unparseable tier price; using default")
			continue
		}
		next[tier] = price
	}

	u.mu.Lock()
	u.prices = next
	u.mu.Unlock()
	u.log.Info().Msg("pricing table refreshed")
}
