package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/testsupport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBackoff() BackoffConfig {
	return BackoffConfig{Base: time.Second, Max: 30 * time.Second, Jitter: 500 * time.Millisecond, MaxAttempts: 3}
}

func seedDepositTask(store *testsupport.MemStore, userID int64, amount, commission string) int64 {
	ctx := context.Background()
	payment := &domain.Payment{UserID: userID, Type: domain.PaymentDeposit, Amount: mustDec(amount), Commission: mustDec(commission), Status: domain.PaymentNew}
	_ = store.Payments().Create(ctx, payment)
	txn := &domain.Transaction{UserID: userID, PaymentID: &payment.ID, Amount: payment.Amount, Commission: payment.Commission, Type: domain.PaymentDeposit, Status: domain.TransactionProcessing}
	_ = store.Transactions().Create(ctx, txn)
	task := &domain.PaymentTask{PaymentID: payment.ID, Status: domain.TaskProcessing, Attempts: 1}
	_ = store.Tasks().Create(ctx, task)
	return task.ID
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplySuccess_Deposit_CreditsBalance(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	if err := applier.ApplySuccess(context.Background(), taskID); err != nil {
		t.Fatalf("ApplySuccess: %v", err)
	}

	user, _ := store.Users().FindByID(context.Background(), userID)
	if !user.Balance.Equal(mustDec("149.00")) {
		t.Fatalf("balance = %s, want 149.00", user.Balance)
	}

	task, _ := store.Tasks().FindByID(context.Background(), taskID)
	if task.Status != domain.TaskDone {
		t.Fatalf("task status = %s, want done", task.Status)
	}
}

func TestApplySuccess_Idempotent(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	ctx := context.Background()
	if err := applier.ApplySuccess(ctx, taskID); err != nil {
		t.Fatalf("first ApplySuccess: %v", err)
	}
	if err := applier.ApplySuccess(ctx, taskID); err != nil {
		t.Fatalf("second ApplySuccess: %v", err)
	}

	user, _ := store.Users().FindByID(ctx, userID)
	if !user.Balance.Equal(mustDec("149.00")) {
		t.Fatalf("balance changed on re-invocation: %s", user.Balance)
	}
}

func TestApplySuccess_WithdrawInsufficientAtApplyTime(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	ctx := context.Background()

	payment := &domain.Payment{UserID: userID, Type: domain.PaymentWithdraw, Amount: mustDec("90.00"), Commission: mustDec("1.00"), Status: domain.PaymentNew}
	_ = store.Payments().Create(ctx, payment)
	txn := &domain.Transaction{UserID: userID, PaymentID: &payment.ID, Amount: payment.Amount, Commission: payment.Commission, Type: domain.PaymentWithdraw, Status: domain.TransactionProcessing}
	_ = store.Transactions().Create(ctx, txn)
	task := &domain.PaymentTask{PaymentID: payment.ID, Status: domain.TaskProcessing, Attempts: 1}
	_ = store.Tasks().Create(ctx, task)

	// Drain the balance between intake and processing.
	user, _ := store.Users().FindByID(ctx, userID)
	user.Balance = mustDec("10.00")
	_ = store.Users().Update(ctx, user)

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	if err := applier.ApplySuccess(ctx, task.ID); err != nil {
		t.Fatalf("ApplySuccess: %v", err)
	}

	p, _ := store.Payments().FindByID(ctx, payment.ID)
	if p.Status != domain.PaymentFailed || p.LastError == nil || *p.LastError != "insufficient_funds" {
		t.Fatalf("payment = %+v, want failed/insufficient_funds", p)
	}

	entries, _ := store.DLQ().List(ctx, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("want 1 dlq entry, got %d", len(entries))
	}
}

func TestApplyRetryableFailure_ReschedulesBelowMaxAttempts(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	ctx := context.Background()

	if err := applier.ApplyRetryableFailure(ctx, taskID, "gateway_timeout"); err != nil {
		t.Fatalf("ApplyRetryableFailure: %v", err)
	}
	task, _ := store.Tasks().FindByID(ctx, taskID)
	if task.Status != domain.TaskNew || task.NextRetryAt == nil {
		t.Fatalf("task = %+v, want rescheduled", task)
	}

	payment, _ := store.Payments().FindByID(ctx, task.PaymentID)
	if payment.Status != domain.PaymentNew || payment.NextRetryAt == nil {
		t.Fatalf("payment = %+v, want rescheduled", payment)
	}
}

func TestApplyRetryableFailure_EscalatesAtMaxAttempts(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	ctx := context.Background()

	payment := &domain.Payment{UserID: userID, Type: domain.PaymentDeposit, Amount: mustDec("50.00"), Commission: mustDec("1.00"), Status: domain.PaymentNew}
	_ = store.Payments().Create(ctx, payment)
	txn := &domain.Transaction{UserID: userID, PaymentID: &payment.ID, Amount: payment.Amount, Commission: payment.Commission, Type: domain.PaymentDeposit, Status: domain.TransactionProcessing}
	_ = store.Transactions().Create(ctx, txn)
	task := &domain.PaymentTask{PaymentID: payment.ID, Status: domain.TaskProcessing, Attempts: 3}
	_ = store.Tasks().Create(ctx, task)

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	if err := applier.ApplyRetryableFailure(ctx, task.ID, "gateway_5xx"); err != nil {
		t.Fatalf("ApplyRetryableFailure: %v", err)
	}

	got, _ := store.Tasks().FindByID(ctx, task.ID)
	if got.Status != domain.TaskFailed {
		t.Fatalf("task status = %s, want failed (escalated)", got.Status)
	}

	entries, _ := store.DLQ().List(ctx, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("want 1 dlq entry after escalation, got %d", len(entries))
	}
}

func TestMarkTerminalFailure_SkipsDuplicateDLQWrite(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")

	applier := NewOutcomeApplier(store, testBackoff(), metrics.New(), testLogger())
	ctx := context.Background()

	if err := applier.MarkTerminalFailure(ctx, taskID, "gateway_4xx"); err != nil {
		t.Fatalf("first MarkTerminalFailure: %v", err)
	}
	if err := applier.MarkTerminalFailure(ctx, taskID, "gateway_4xx"); err != nil {
		t.Fatalf("second MarkTerminalFailure: %v", err)
	}

	entries, _ := store.DLQ().List(ctx, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("want exactly 1 dlq entry, got %d", len(entries))
	}
}
