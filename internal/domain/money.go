// Package domain holds the core payment-engine types: users, payments,
// transactions, tasks and the dead-letter queue, plus the rules that govern
// how they move between states.
package domain

import (
	"github.com/shopspring/decimal"
)

// scale is the fixed number of fractional digits every monetary value in
// the system carries. Money never touches a float64.
const scale = 2

// RoundMoney rounds d to the fixed scale using half-even (banker's)
// rounding, matching commercial rounding conventions for fee calculation.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(scale)
}

// Commission computes the flat commission for a transaction amount at the
// given fee rate (e.g. 0.02 for 2%), rounded half-even to two decimals.
func Commission(amount decimal.Decimal, feeRate decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(feeRate))
}
