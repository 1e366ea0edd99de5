package domain

import "github.com/shopspring/decimal"

// Amounts are stored as float64 but every pricing decision is made on
// decimals rounded to cents, so an increment boundary like 109.99 vs 110.00
// never depends on float representation.
const moneyPrecision int32 = 2

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(moneyPrecision)
}

// MoneyCmp compares two amounts at cent precision: -1 if a < b, 0 if equal,
// +1 if a > b.
func MoneyCmp(a, b float64) int {
	return money(a).Cmp(money(b))
}

// MeetsIncrement reports whether amount is at least current + increment.
func MeetsIncrement(amount, current, increment float64) bool {
	return money(amount).GreaterThanOrEqual(money(current).Add(money(increment)))
}

// MinimumAcceptableBid returns the lowest amount the engine would admit given
// the standing bid and the auction's increment.
func MinimumAcceptableBid(current, increment float64) float64 {
	return money(current).Add(money(increment)).InexactFloat64()
}
