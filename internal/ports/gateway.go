package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
)

// ChargeRequest is the outbound payload sent to the payment gateway.
type ChargeRequest struct {
	PaymentID  int64
	UserID     int64
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Type       domain.PaymentType
}

// ChargeResult classifies the gateway's response per spec: success, a
// retryable failure (timeout, connection reset, 5xx, 429), or a
// non-retryable failure (any other 4xx).
type ChargeResult struct {
	Success   bool
	ErrorCode string
	Retryable bool
}

// GatewayPort is the outbound call to the external payment processor. It
// never retries internally — the worker's scheduler decides that.
type GatewayPort interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// EventPublisher fans out best-effort notifications of payment outcome
// transitions to downstream consumers. Publishing happens after the
// owning transaction commits and never affects engine correctness: a
// publish failure is logged, not retried against the core state machine.
type EventPublisher interface {
	PublishPaymentOutcome(ctx context.Context, p *domain.Payment) error
	Close() error
}

// PollCoordinator staggers reserve-next polling across worker processes
// to avoid a synchronized thundering herd against the database. A no-op
// implementation is always correct; it only affects poll spacing, never
// task-reservation correctness (the database row lock is authoritative).
type PollCoordinator interface {
	// Acquire returns true if this worker should poll now, spacing polls
	// out via a shared coordination token when false.
	Acquire(ctx context.Context, workerID string) bool
}
