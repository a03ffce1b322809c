package service

import "github.com/shopspring/decimal"

// TaxPolicy computes the tax line for an order. The rate is the restaurant's
// configured rate at the moment the order is built, so a mid-order settings
// change never produces a mixed total.
type TaxPolicy interface {
	TaxFor(subtotal, rate decimal.Decimal) decimal.Decimal
}

// FlatRatePolicy multiplies the subtotal by the configured rate and rounds
// to cents.
type FlatRatePolicy struct{}

func (FlatRatePolicy) TaxFor(subtotal, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return subtotal.Mul(rate).Round(2)
}
