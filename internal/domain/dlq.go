package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DLQEntry is an append-only record of a payment whose async processing
// terminally failed, kept for operator review.
type DLQEntry struct {
	ID         int64
	PaymentID  int64
	UserID     int64
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Type       PaymentType
	Error      string
	Attempts   int
	CreatedAt  time.Time
}
