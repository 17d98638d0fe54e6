package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"remo-checkout/internal/domain"
)

// PlanTier is one of the fixed account tiers offered for purchase.
type PlanTier string

const (
	TierBeginner PlanTier = "beginner"
	TierAverage  PlanTier = "average"
	TierExpert   PlanTier = "expert"
)

// Tiers lists the tiers in feed order: the cached pricing feed carries the
// beginner/average/expert USD prices at indices 2, 3 and 4 respectively.
var Tiers = []PlanTier{TierBeginner, TierAverage, TierExpert}

// FeedIndex returns the position of this tier's price in the raw feed.
func (t PlanTier) FeedIndex() int {
	for i, tier := range Tiers {
		if tier == t {
			return i + 2
		}
	}
	return -1
}

// ParseTier maps user input (case-insensitive) to a known tier.
func ParseTier(s string) (PlanTier, error) {
	switch PlanTier(strings.ToLower(strings.TrimSpace(s))) {
	case TierBeginner:
		return TierBeginner, nil
	case TierAverage:
		return TierAverage, nil
	case TierExpert:
		return TierExpert, nil
	}
	return "", domain.ErrInvalidPlan
}

// DefaultPrices are the hardcoded USD fallbacks used whenever the cached
// feed is missing, malformed, or too short.
func DefaultPrices() map[PlanTier]decimal.Decimal {
	return map[PlanTier]decimal.Decimal{
		TierBeginner: decimal.RequireFromString("2.40"),
		TierAverage:  decimal.RequireFromString("4.50"),
		TierExpert:   decimal.RequireFromString("6.50"),
	}
}

// Plan is a purchasable account plan with its resolved USD price.
// Immutable once resolved for a session.
type Plan struct {
	Tier     PlanTier
	PriceUSD decimal.Decimal
}

func (p *Plan) IsZero() bool { return p == nil || p.Tier == "" }

// NewPlan validates and constructs a plan.
func NewPlan(tier PlanTier, priceUSD decimal.Decimal) (*Plan, error) {
	if _, err := ParseTier(string(tier)); err != nil {
		return nil, err
	}
	if priceUSD.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}
	return &Plan{Tier: tier, PriceUSD: priceUSD}, nil
}
