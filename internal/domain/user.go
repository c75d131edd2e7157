package domain

import "github.com/shopspring/decimal"

// User owns a balance that appliers mutate under a row lock. Balance is
// never negative once a transaction commits (invariant I1).
type User struct {
	ID      int64
	Balance decimal.Decimal
}
