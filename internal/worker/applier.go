package worker

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
)

// OutcomeApplier implements C6: the three outcome transitions a worker
// can drive a reserved task to. Each method is its own transaction,
// locking task, payment, transaction, and user in that order to avoid
// deadlock against concurrent appliers, grounded on the teacher's
// CaptureService.Capture WithTx-then-mutate-then-Update shape.
type OutcomeApplier struct {
	store   ports.Store
	backoff BackoffConfig
	metrics *metrics.Registry
	logger  *slog.Logger
	rng     *rand.Rand
}

func NewOutcomeApplier(store ports.Store, backoff BackoffConfig, reg *metrics.Registry, logger *slog.Logger) *OutcomeApplier {
	return &OutcomeApplier{
		store:   store,
		backoff: backoff,
		metrics: reg,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ApplySuccess credits or debits the user's balance and marks the
// payment, transaction, and task done. It is idempotent: re-invocation
// against an already-success payment is a no-op.
func (a *OutcomeApplier) ApplySuccess(ctx context.Context, taskID int64) error {
	return a.store.WithTx(ctx, func(tx ports.Store) error {
		task, err := tx.Tasks().FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		payment, err := tx.Payments().FindByIDForUpdate(ctx, task.PaymentID)
		if err != nil {
			return err
		}

		if payment.Status == domain.PaymentSuccess {
			task.Status = domain.TaskDone
			return tx.Tasks().Update(ctx, task)
		}

		txn, err := tx.Transactions().FindByPaymentIDForUpdate(ctx, payment.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return a.terminalFailureLocked(ctx, tx, task, payment, nil, "missing_transaction")
			}
			return err
		}

		user, err := tx.Users().FindByIDForUpdate(ctx, payment.UserID)
		if err != nil {
			if domain.IsErrorCode(err, domain.ErrCodeUserNotFound) {
				return a.terminalFailureLocked(ctx, tx, task, payment, txn, "missing_user")
			}
			return err
		}

		if payment.Type == domain.PaymentWithdraw {
			total := payment.TotalDebit()
			if user.Balance.LessThan(total) {
				return a.terminalFailureLocked(ctx, tx, task, payment, txn, "insufficient_funds")
			}
		}
		user.Balance = user.Balance.Add(payment.NetDelta())
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}

		payment.Status = domain.PaymentSuccess
		payment.LastError = nil
		payment.LockedAt = nil
		payment.NextRetryAt = nil
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return err
		}

		txn.Status = domain.TransactionSuccess
		if err := tx.Transactions().Update(ctx, txn); err != nil {
			return err
		}

		task.Status = domain.TaskDone
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return err
		}

		a.metrics.Inc(metrics.PaymentsSuccessTotal, 1)
		return nil
	})
}

// ApplyRetryableFailure reschedules the task with backoff, or escalates
// to terminal failure once max_attempts is exhausted.
func (a *OutcomeApplier) ApplyRetryableFailure(ctx context.Context, taskID int64, reason string) error {
	return a.store.WithTx(ctx, func(tx ports.Store) error {
		task, err := tx.Tasks().FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		payment, err := tx.Payments().FindByIDForUpdate(ctx, task.PaymentID)
		if err != nil {
			return err
		}

		if task.Attempts >= a.backoff.MaxAttempts {
			txn, err := tx.Transactions().FindByPaymentIDForUpdate(ctx, payment.ID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return a.terminalFailureLocked(ctx, tx, task, payment, txn, reason)
		}

		delay := a.backoff.Delay(task.Attempts, a.rng)
		nextRetry := time.Now().Add(delay)

		task.Status = domain.TaskNew
		task.NextRetryAt = &nextRetry
		task.LockedAt = nil
		task.LastError = &reason
		if err := tx.Tasks().Update(ctx, task); err != nil {
			return err
		}

		payment.Status = domain.PaymentNew
		payment.NextRetryAt = &nextRetry
		payment.LastError = &reason
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return err
		}

		a.metrics.Inc(metrics.PaymentsRetriedTotal, 1)
		return nil
	})
}

// MarkTerminalFailure fails the payment, its transaction, and the task,
// and writes a DLQ entry, skipping the write if one already exists for
// this payment.
func (a *OutcomeApplier) MarkTerminalFailure(ctx context.Context, taskID int64, reason string) error {
	return a.store.WithTx(ctx, func(tx ports.Store) error {
		task, err := tx.Tasks().FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		payment, err := tx.Payments().FindByIDForUpdate(ctx, task.PaymentID)
		if err != nil {
			return err
		}
		txn, err := tx.Transactions().FindByPaymentIDForUpdate(ctx, payment.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return a.terminalFailureLocked(ctx, tx, task, payment, txn, reason)
	})
}

// terminalFailureLocked performs the shared terminal-failure write: it
// assumes task, payment, and (if found) txn are already locked by the
// caller's transaction.
func (a *OutcomeApplier) terminalFailureLocked(ctx context.Context, tx ports.Store, task *domain.PaymentTask, payment *domain.Payment, txn *domain.Transaction, reason string) error {
	payment.Status = domain.PaymentFailed
	payment.LastError = &reason
	payment.LockedAt = nil
	if err := tx.Payments().Update(ctx, payment); err != nil {
		return err
	}

	if txn != nil {
		txn.Status = domain.TransactionFailed
		if err := tx.Transactions().Update(ctx, txn); err != nil {
			return err
		}
	}

	task.Status = domain.TaskFailed
	task.LastError = &reason
	task.LockedAt = nil
	if err := tx.Tasks().Update(ctx, task); err != nil {
		return err
	}

	exists, err := tx.DLQ().ExistsForPayment(ctx, payment.ID)
	if err != nil {
		return err
	}
	if !exists {
		entry := &domain.DLQEntry{
			PaymentID:  payment.ID,
			UserID:     payment.UserID,
			Amount:     payment.Amount,
			Commission: payment.Commission,
			Type:       payment.Type,
			Error:      reason,
			Attempts:   task.Attempts,
		}
		if err := tx.DLQ().Create(ctx, entry); err != nil {
			return err
		}
		a.metrics.Inc(metrics.DLQWrittenTotal, 1)
	}

	a.metrics.Inc(metrics.PaymentsFailedTotal, 1)
	return nil
}
