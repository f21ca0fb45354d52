package domain

import "github.com/shopspring/decimal"

// NetAmount computes the amount credited to the recipient wallet after the
// platform commission is retained: net = gross * (1 - rate), rounded half-up
// to the smallest currency unit.
func NetAmount(gross int64, rate decimal.Decimal) int64 {
	net := decimal.NewFromInt(gross).
		Mul(decimal.NewFromInt(1).Sub(rate)).
		Round(0)
	return net.IntPart()
}

// CommissionAmount computes the platform's share of a gross donation.
// Gross always equals commission + net so the ledger adds up.
func CommissionAmount(gross int64, rate decimal.Decimal) int64 {
	return gross - NetAmount(gross, rate)
}
