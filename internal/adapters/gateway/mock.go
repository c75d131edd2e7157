package gateway

import (
	"context"
	"math/rand"

	"github.com/brightlane/paymentflow/internal/ports"
)

// MockGateway simulates a payment processor for local development and
// demos, where no real bank endpoint is configured. It approves most
// charges, occasionally returns a retryable failure, and never returns a
// non-retryable one — there is no real fraud/compliance engine behind it.
type MockGateway struct {
	// FailureRate is the fraction of calls (0..1) that return a
	// retryable failure instead of success.
	FailureRate float64
	rng         *rand.Rand
}

func NewMockGateway(failureRate float64) *MockGateway {
	return &MockGateway{FailureRate: failureRate, rng: rand.New(rand.NewSource(1))}
}

func (m *MockGateway) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	if m.rng.Float64() < m.FailureRate {
		return ports.ChargeResult{Success: false, ErrorCode: "mock_gateway_unavailable", Retryable: true}, nil
	}
	return ports.ChargeResult{Success: true}, nil
}
