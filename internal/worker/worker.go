// Package worker implements C5 (the reservation/poll loop) and C6 (the
// outcome appliers) of the async payment engine: a set of long-lived
// goroutines that reserve due tasks, call the gateway, and commit the
// outcome, grounded on the teacher's worker/reconciler.go Start/run
// ticker shape.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/metrics"
	"github.com/brightlane/paymentflow/internal/ports"
)

// Config holds the worker loop's tunables, read once at startup.
type Config struct {
	PollInterval      time.Duration
	ProcessingTimeout time.Duration
	Backoff           BackoffConfig
}

// Worker reserves due tasks one at a time and drives them through the
// gateway to an outcome. Multiple Workers run concurrently against the
// same store; the database row lock, not an in-process mutex, is what
// serializes access to any one task.
type Worker struct {
	id        string
	store     ports.Store
	gateway   ports.GatewayPort
	applier   *OutcomeApplier
	coord     ports.PollCoordinator
	publisher ports.EventPublisher
	cfg       Config
	metrics   *metrics.Registry
	logger    *slog.Logger
}

func New(id string, store ports.Store, gateway ports.GatewayPort, applier *OutcomeApplier, coord ports.PollCoordinator, publisher ports.EventPublisher, cfg Config, reg *metrics.Registry, logger *slog.Logger) *Worker {
	return &Worker{
		id:        id,
		store:     store,
		gateway:   gateway,
		applier:   applier,
		coord:     coord,
		publisher: publisher,
		cfg:       cfg,
		metrics:   reg,
		logger:    logger.With("worker_id", id),
	}
}

// Start runs the poll loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("starting worker", "poll_interval", w.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping worker")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Worker) run(ctx context.Context) {
	if w.coord != nil && !w.coord.Acquire(ctx, w.id) {
		return
	}

	task, payment, hasWork, err := w.reserve(ctx)
	if err != nil {
		w.logger.Error("reserve task failed", "error", err)
		return
	}
	if !hasWork {
		return
	}

	w.metrics.Inc(metrics.ProcessingStartedTotal, 1)

	if _, err := w.store.Transactions().FindByPaymentID(ctx, payment.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.applyOutcome(ctx, task.ID, payment, func(ctx context.Context) error {
				return w.applier.MarkTerminalFailure(ctx, task.ID, "missing_transaction")
			})
			return
		}
		w.logger.Error("load transaction failed", "task_id", task.ID, "error", err)
		return
	}

	req := ports.ChargeRequest{
		PaymentID:  payment.ID,
		UserID:     payment.UserID,
		Amount:     payment.Amount,
		Commission: payment.Commission,
		Type:       payment.Type,
	}

	result, err := w.gateway.Charge(ctx, req)
	if err != nil {
		w.logger.Error("gateway call failed", "task_id", task.ID, "error", err)
		w.applyOutcome(ctx, task.ID, payment, func(ctx context.Context) error {
			return w.applier.ApplyRetryableFailure(ctx, task.ID, "gateway_unreachable")
		})
		return
	}

	w.dispatch(ctx, task.ID, payment, result)
}

func (w *Worker) dispatch(ctx context.Context, taskID int64, payment *domain.Payment, result ports.ChargeResult) {
	switch {
	case result.Success:
		w.metrics.Inc(metrics.GatewaySuccessTotal, 1)
		w.applyOutcome(ctx, taskID, payment, func(ctx context.Context) error {
			return w.applier.ApplySuccess(ctx, taskID)
		})
	case result.Retryable:
		w.metrics.Inc(metrics.GatewayErrorsTotal, 1)
		if result.ErrorCode == "network_error" {
			w.metrics.Inc(metrics.GatewayTimeoutsTotal, 1)
		}
		w.applyOutcome(ctx, taskID, payment, func(ctx context.Context) error {
			return w.applier.ApplyRetryableFailure(ctx, taskID, result.ErrorCode)
		})
	default:
		w.metrics.Inc(metrics.GatewayNonRetryableTotal, 1)
		w.applyOutcome(ctx, taskID, payment, func(ctx context.Context) error {
			return w.applier.MarkTerminalFailure(ctx, taskID, result.ErrorCode)
		})
	}
}

// applyOutcome runs apply and, on success, best-effort publishes the
// outcome event. A publish failure never affects engine correctness.
func (w *Worker) applyOutcome(ctx context.Context, taskID int64, payment *domain.Payment, apply func(context.Context) error) {
	if err := apply(ctx); err != nil {
		w.logger.Error("apply outcome failed", "task_id", taskID, "error", err)
		return
	}
	if w.publisher == nil {
		return
	}
	updated, err := w.store.Payments().FindByID(ctx, payment.ID)
	if err != nil {
		w.logger.Error("reload payment for publish failed", "payment_id", payment.ID, "error", err)
		return
	}
	if err := w.publisher.PublishPaymentOutcome(ctx, updated); err != nil {
		w.logger.Warn("publish payment outcome failed", "payment_id", payment.ID, "error", err)
	}
}

// reserve runs the reservation transaction from spec §4.4: select the
// oldest eligible task under FOR UPDATE SKIP LOCKED, bump its attempt
// count, and mirror the in-flight state onto the payment, or resolve it
// immediately as "no work" if the payment already reached a terminal
// state ahead of the task.
func (w *Worker) reserve(ctx context.Context) (*domain.PaymentTask, *domain.Payment, bool, error) {
	var task *domain.PaymentTask
	var payment *domain.Payment
	var hasWork bool

	err := w.store.WithTx(ctx, func(tx ports.Store) error {
		id, found, err := tx.Tasks().ReserveNext(ctx, w.cfg.ProcessingTimeout)
		if err != nil {
			return fmt.Errorf("reserve next task: %w", err)
		}
		if !found {
			return nil
		}

		t, err := tx.Tasks().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p, err := tx.Payments().FindByIDForUpdate(ctx, t.PaymentID)
		if err != nil {
			return err
		}

		now := time.Now()
		t.Attempts++
		t.LockedAt = &now
		t.NextRetryAt = nil

		switch p.Status {
		case domain.PaymentSuccess:
			t.Status = domain.TaskDone
			if err := tx.Tasks().Update(ctx, t); err != nil {
				return err
			}
			return nil
		case domain.PaymentFailed:
			t.Status = domain.TaskFailed
			if err := tx.Tasks().Update(ctx, t); err != nil {
				return err
			}
			return nil
		}

		t.Status = domain.TaskProcessing
		if err := tx.Tasks().Update(ctx, t); err != nil {
			return err
		}

		p.Status = domain.PaymentProcessing
		p.Attempts = t.Attempts
		p.LockedAt = &now
		if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}

		task, payment, hasWork = t, p, true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return task, payment, hasWork, nil
}
