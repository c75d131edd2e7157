package domain

import "github.com/shopspring/decimal"

// TransactionStatus mirrors the owning payment's terminal outcome; it has
// no independent retry logic.
type TransactionStatus string

const (
	TransactionProcessing TransactionStatus = "processing"
	TransactionSuccess    TransactionStatus = "success"
	TransactionFailed     TransactionStatus = "failed"
)

// Transaction is the ledger entry for a payment. There is exactly one
// transaction per payment in the current design.
type Transaction struct {
	ID         int64
	UserID     int64
	PaymentID  *int64
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Type       PaymentType
	Status     TransactionStatus
}
