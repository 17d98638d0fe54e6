package model

import (
	"github.com/shopspring/decimal"

	"remo-checkout/internal/domain"
)

// DefaultUSDToKES is the fixed exchange rate applied to plan prices.
const DefaultUSDToKES = "129.4"

// CurrencyConverter converts USD plan prices into Kenyan shillings at a
// fixed rate. Display amounts keep two decimal places; payment instruction
// amounts are rounded to the nearest whole shilling because the STK-push
// gateway only accepts integral amounts.
type CurrencyConverter struct {
	rate decimal.Decimal
}

// NewCurrencyConverter builds a converter from a rate string such as "129.4".
func NewCurrencyConverter(rate string) (*CurrencyConverter, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil || !r.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	return &CurrencyConverter{rate: r}, nil
}

// ToKES returns the display amount: round(usd * rate, 2).
func (c *CurrencyConverter) ToKES(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.rate).Round(2)
}

// ToKESUnits returns the whole-shilling amount sent to the gateway.
func (c *CurrencyConverter) ToKESUnits(usd decimal.Decimal) int64 {
	return usd.Mul(c.rate).Round(0).IntPart()
}

// FormatKES renders a display amount with exactly two decimals ("841.10").
func FormatKES(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
