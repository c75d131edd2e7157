package application

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/testsupport"
)

func newIntake(t *testing.T, store *testsupport.MemStore) *PaymentIntake {
	t.Helper()
	feeRate := decimal.NewFromFloat(0.02)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPaymentIntake(store, metrics.New(), feeRate, logger)
}

func TestDeposit_CreatesPaymentTransactionAndTask(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	in := newIntake(t, store)

	payment, err := in.Deposit(context.Background(), userID, decimal.NewFromInt(50), nil)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if payment.Status != domain.PaymentNew {
		t.Fatalf("status = %s, want new", payment.Status)
	}
	if !payment.Commission.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("commission = %s, want 1.00", payment.Commission)
	}

	task, err := store.Tasks().FindByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if task.PaymentID != payment.ID || task.Status != domain.TaskNew {
		t.Fatalf("task not wired to payment: %+v", task)
	}

	txn, err := store.Transactions().FindByPaymentID(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if txn.Status != domain.TransactionProcessing {
		t.Fatalf("transaction status = %s, want processing", txn.Status)
	}
}

func TestWithdraw_InsufficientFunds_FailsFastWithoutTask(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("10.00")
	in := newIntake(t, store)

	payment, err := in.Withdraw(context.Background(), userID, decimal.NewFromInt(50), nil)
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if !domain.IsErrorCode(err, domain.ErrCodeInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
	if payment.Status != domain.PaymentFailed {
		t.Fatalf("status = %s, want failed", payment.Status)
	}

	if _, terr := store.Tasks().FindByID(context.Background(), 1); terr == nil {
		t.Fatal("expected no task to be created for a failed-fast withdraw")
	}

	txn, terr := store.Transactions().FindByPaymentID(context.Background(), payment.ID)
	if terr != nil {
		t.Fatalf("find transaction: %v", terr)
	}
	if txn.Status != domain.TransactionFailed {
		t.Fatalf("transaction status = %s, want failed", txn.Status)
	}
}

func TestWithdraw_SufficientFunds_CreatesTask(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	in := newIntake(t, store)

	payment, err := in.Withdraw(context.Background(), userID, decimal.NewFromInt(50), nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if payment.Status != domain.PaymentNew {
		t.Fatalf("status = %s, want new", payment.Status)
	}

	task, err := store.Tasks().FindByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if task.PaymentID != payment.ID {
		t.Fatalf("task not wired to payment: %+v", task)
	}
}

func TestDeposit_IdempotentReplay_ReturnsSamePayment(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	in := newIntake(t, store)

	key := "client-generated-key-1"
	first, err := in.Deposit(context.Background(), userID, decimal.NewFromInt(50), &key)
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}

	second, err := in.Deposit(context.Background(), userID, decimal.NewFromInt(999), &key)
	if err != nil {
		t.Fatalf("replayed deposit: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay created a new payment: first=%d second=%d", first.ID, second.ID)
	}
	if !second.Amount.Equal(first.Amount) {
		t.Fatalf("replay returned a different amount: %s vs %s", second.Amount, first.Amount)
	}
}

func TestDeposit_InvalidAmount_Rejected(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	in := newIntake(t, store)

	_, err := in.Deposit(context.Background(), userID, decimal.Zero, nil)
	if !domain.IsErrorCode(err, domain.ErrCodeInvalidAmount) {
		t.Fatalf("err = %v, want invalid amount", err)
	}

	_, err = in.Deposit(context.Background(), userID, decimal.NewFromInt(-5), nil)
	if !domain.IsErrorCode(err, domain.ErrCodeInvalidAmount) {
		t.Fatalf("err = %v, want invalid amount", err)
	}
}

func TestDeposit_IdempotencyKeyTooLong_Rejected(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	in := newIntake(t, store)

	longKey := ""
	for i := 0; i < maxIdempotencyKeyLen+1; i++ {
		longKey += "x"
	}

	_, err := in.Deposit(context.Background(), userID, decimal.NewFromInt(50), &longKey)
	if !domain.IsErrorCode(err, domain.ErrCodeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
