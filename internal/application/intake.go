// Package application holds the synchronous intake use cases (C4): the
// only two public operations clients drive directly, deposit and
// withdraw. Each persists a payment, a transaction, and (unless the
// request fails a fast precondition) a scheduling task, all inside one
// database transaction, the way the teacher's CaptureService composes
// idempotency handling with a single WithTx closure.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
)

const maxIdempotencyKeyLen = 64

// PaymentIntake implements the deposit/withdraw use cases.
type PaymentIntake struct {
	store   ports.Store
	metrics *metrics.Registry
	feeRate decimal.Decimal
	logger  *slog.Logger
}

func NewPaymentIntake(store ports.Store, reg *metrics.Registry, feeRate decimal.Decimal, logger *slog.Logger) *PaymentIntake {
	return &PaymentIntake{store: store, metrics: reg, feeRate: feeRate, logger: logger}
}

// Deposit validates, computes commission, and persists a payment +
// transaction + task in one transaction. It never fails on insufficient
// funds — a deposit only ever increases balance.
func (in *PaymentIntake) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error) {
	in.metrics.Inc(metrics.DepositRequestsTotal, 1)
	return in.intake(ctx, userID, domain.PaymentDeposit, amount, idempotencyKey)
}

// Withdraw validates, computes commission, and either short-circuits with
// a failed payment (insufficient funds, no task) or persists a payment +
// transaction + task, exactly as Deposit does.
func (in *PaymentIntake) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error) {
	in.metrics.Inc(metrics.WithdrawRequestsTotal, 1)
	return in.intake(ctx, userID, domain.PaymentWithdraw, amount, idempotencyKey)
}

func (in *PaymentIntake) intake(ctx context.Context, userID int64, typ domain.PaymentType, amount decimal.Decimal, idempotencyKey *string) (*domain.Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewInvalidAmountError("amount must be greater than zero")
	}
	if idempotencyKey != nil && len(*idempotencyKey) > maxIdempotencyKeyLen {
		return nil, domain.NewValidationError(fmt.Sprintf("idempotency key exceeds %d characters", maxIdempotencyKeyLen))
	}

	var result *domain.Payment
	// insufficientFunds is set, not returned, by the withdraw short
	// circuit below: the failed payment/transaction rows must still
	// commit, so the closure returns nil and intake() raises the error
	// to the caller only after WithTx has committed.
	var insufficientFunds error

	err := in.store.WithTx(ctx, func(tx ports.Store) error {
		var user *domain.User
		var err error
		if typ == domain.PaymentWithdraw {
			user, err = tx.Users().FindByIDForUpdate(ctx, userID)
		} else {
			user, err = tx.Users().FindByID(ctx, userID)
		}
		if err != nil {
			return err
		}

		if idempotencyKey != nil {
			existing, err := tx.Payments().FindByIdempotencyKey(ctx, userID, *idempotencyKey)
			if err == nil {
				in.metrics.Inc(metrics.IdempotencyHitsTotal, 1)
				result = existing
				return nil
			}
			if !domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
				return err
			}
		}

		commission := domain.Commission(amount, in.feeRate)

		payment := &domain.Payment{
			UserID:         userID,
			Type:           typ,
			Amount:         domain.RoundMoney(amount),
			Commission:     commission,
			IdempotencyKey: idempotencyKey,
		}

		if typ == domain.PaymentWithdraw {
			total := payment.TotalDebit()
			if user.Balance.LessThan(total) {
				if err := in.failFast(ctx, tx, payment); err != nil {
					return err
				}
				insufficientFunds = domain.NewInsufficientFundsError()
				result = payment
				return nil
			}
		}

		payment.Status = domain.PaymentNew
		if err := tx.Payments().Create(ctx, payment); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
				existing, ferr := tx.Payments().FindByIdempotencyKey(ctx, userID, *idempotencyKey)
				if ferr != nil {
					return ferr
				}
				in.metrics.Inc(metrics.IdempotencyHitsTotal, 1)
				result = existing
				return nil
			}
			return err
		}

		txn := &domain.Transaction{
			UserID:     userID,
			PaymentID:  &payment.ID,
			Amount:     payment.Amount,
			Commission: payment.Commission,
			Type:       typ,
			Status:     domain.TransactionProcessing,
		}
		if err := tx.Transactions().Create(ctx, txn); err != nil {
			return err
		}

		task := &domain.PaymentTask{
			PaymentID: payment.ID,
			Status:    domain.TaskNew,
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}

		in.metrics.Inc(metrics.TaskEnqueuedTotal, 1)
		result = payment
		return nil
	})

	if err != nil {
		return nil, err
	}
	if insufficientFunds != nil {
		return result, insufficientFunds
	}
	return result, nil
}

// failFast handles the withdraw-only insufficient-funds short circuit: a
// failed payment and a matching failed transaction are persisted, but no
// task is created, since there is no async work to schedule.
func (in *PaymentIntake) failFast(ctx context.Context, tx ports.Store, payment *domain.Payment) error {
	errMsg := "insufficient_funds"
	payment.Status = domain.PaymentFailed
	payment.LastError = &errMsg

	if err := tx.Payments().Create(ctx, payment); err != nil {
		return err
	}

	txn := &domain.Transaction{
		UserID:     payment.UserID,
		PaymentID:  &payment.ID,
		Amount:     payment.Amount,
		Commission: payment.Commission,
		Type:       payment.Type,
		Status:     domain.TransactionFailed,
	}
	return tx.Transactions().Create(ctx, txn)
}
