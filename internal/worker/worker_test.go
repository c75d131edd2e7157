package worker

import (
	"context"
	"testing"
	"time"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
	"github.com/brightlane/paymentflow/internal/testsupport"
)

func testWorkerConfig() Config {
	return Config{
		PollInterval:      time.Millisecond,
		ProcessingTimeout: 30 * time.Second,
		Backoff:           testBackoff(),
	}
}

func TestWorker_Run_SuccessPath(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")
	// reset task to new/unlocked so reserve() can pick it up
	task, _ := store.Tasks().FindByID(context.Background(), taskID)
	task.Status = domain.TaskNew
	task.Attempts = 0
	_ = store.Tasks().Update(context.Background(), task)

	gw := testsupport.NewScriptedGateway(ports.ChargeResult{Success: true})
	reg := metrics.New()
	applier := NewOutcomeApplier(store, testBackoff(), reg, testLogger())
	w := New("w1", store, gw, applier, nil, testsupport.NoopPublisher{}, testWorkerConfig(), reg, testLogger())

	w.run(context.Background())

	got, _ := store.Tasks().FindByID(context.Background(), taskID)
	if got.Status != domain.TaskDone {
		t.Fatalf("task status = %s, want done", got.Status)
	}
	user, _ := store.Users().FindByID(context.Background(), userID)
	if !user.Balance.Equal(mustDec("149.00")) {
		t.Fatalf("balance = %s, want 149.00", user.Balance)
	}
	if len(gw.Calls()) != 1 {
		t.Fatalf("want 1 gateway call, got %d", len(gw.Calls()))
	}
}

func TestWorker_Run_RetryableFailureReschedules(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	taskID := seedDepositTask(store, userID, "50.00", "1.00")
	task, _ := store.Tasks().FindByID(context.Background(), taskID)
	task.Status = domain.TaskNew
	task.Attempts = 0
	_ = store.Tasks().Update(context.Background(), task)

	gw := testsupport.NewScriptedGateway(ports.ChargeResult{Success: false, ErrorCode: "gateway_5xx", Retryable: true})
	reg := metrics.New()
	applier := NewOutcomeApplier(store, testBackoff(), reg, testLogger())
	w := New("w1", store, gw, applier, nil, testsupport.NoopPublisher{}, testWorkerConfig(), reg, testLogger())

	w.run(context.Background())

	got, _ := store.Tasks().FindByID(context.Background(), taskID)
	if got.Status != domain.TaskNew || got.NextRetryAt == nil {
		t.Fatalf("task = %+v, want rescheduled", got)
	}
}

func TestWorker_Run_NoEligibleTask_NoGatewayCall(t *testing.T) {
	store := testsupport.NewMemStore()
	gw := testsupport.NewScriptedGateway(ports.ChargeResult{Success: true})
	reg := metrics.New()
	applier := NewOutcomeApplier(store, testBackoff(), reg, testLogger())
	w := New("w1", store, gw, applier, nil, testsupport.NoopPublisher{}, testWorkerConfig(), reg, testLogger())

	w.run(context.Background())

	if len(gw.Calls()) != 0 {
		t.Fatalf("want no gateway calls with empty queue, got %d", len(gw.Calls()))
	}
}

func TestWorker_Run_MissingTransactionTerminatesTask(t *testing.T) {
	store := testsupport.NewMemStore()
	userID := store.SeedUser("100.00")
	ctx := context.Background()

	payment := &domain.Payment{UserID: userID, Type: domain.PaymentDeposit, Amount: mustDec("10.00"), Commission: mustDec("0.20"), Status: domain.PaymentNew}
	_ = store.Payments().Create(ctx, payment)
	task := &domain.PaymentTask{PaymentID: payment.ID, Status: domain.TaskNew}
	_ = store.Tasks().Create(ctx, task)

	gw := testsupport.NewScriptedGateway(ports.ChargeResult{Success: true})
	reg := metrics.New()
	applier := NewOutcomeApplier(store, testBackoff(), reg, testLogger())
	w := New("w1", store, gw, applier, nil, testsupport.NoopPublisher{}, testWorkerConfig(), reg, testLogger())

	w.run(ctx)

	got, _ := store.Tasks().FindByID(ctx, task.ID)
	if got.Status != domain.TaskFailed {
		t.Fatalf("task status = %s, want failed (missing_transaction)", got.Status)
	}
	if len(gw.Calls()) != 0 {
		t.Fatalf("want no gateway call when transaction missing, got %d", len(gw.Calls()))
	}
}
