package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the business-state machine of a payment:
//
//	new -> processing -> { success | new (retry) | failed }
//
// success and failed are terminal.
type PaymentStatus string

const (
	PaymentNew        PaymentStatus = "new"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// PaymentType distinguishes a credit to the user's balance from a debit.
type PaymentType string

const (
	PaymentDeposit  PaymentType = "deposit"
	PaymentWithdraw PaymentType = "withdraw"
)

// Payment is the business record for a single deposit or withdraw request.
type Payment struct {
	ID              int64
	UserID          int64
	Type            PaymentType
	Amount          decimal.Decimal
	Commission      decimal.Decimal
	Status          PaymentStatus
	IdempotencyKey  *string
	Attempts        int
	LastError       *string
	NextRetryAt     *time.Time
	LockedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanTransitionTo enforces the payment state machine. Terminal states never
// move again.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	if p.Status.IsTerminal() {
		return NewInvalidTransitionError(p.Status, target)
	}
	switch p.Status {
	case PaymentNew:
		if target == PaymentProcessing || target == PaymentFailed {
			return nil
		}
	case PaymentProcessing:
		if target == PaymentSuccess || target == PaymentNew || target == PaymentFailed {
			return nil
		}
	}
	return NewInvalidTransitionError(p.Status, target)
}

// NetDelta returns the signed balance change a successful application of
// this payment produces: +(amount-commission) for a deposit, -(amount+
// commission) for a withdraw (invariant I2).
func (p *Payment) NetDelta() decimal.Decimal {
	if p.Type == PaymentDeposit {
		return p.Amount.Sub(p.Commission)
	}
	return p.Amount.Add(p.Commission).Neg()
}

// TotalDebit returns amount+commission, the quantity checked against
// balance for a withdraw.
func (p *Payment) TotalDebit() decimal.Decimal {
	return p.Amount.Add(p.Commission)
}
