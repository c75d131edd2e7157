package testsupport

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/brightlane/paymentflow/internal/domain"
	"github.com/brightlane/paymentflow/internal/ports"
)

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ScriptedGateway returns a fixed, ordered sequence of results per call,
// the way the teacher's mock bank client lets tests script a retryable
// failure followed by a success. Results are consumed in order; once
// exhausted, the last result repeats.
type ScriptedGateway struct {
	mu      sync.Mutex
	results []ports.ChargeResult
	errs    []error
	calls   []ports.ChargeRequest
	idx     int
}

func NewScriptedGateway(results ...ports.ChargeResult) *ScriptedGateway {
	return &ScriptedGateway{results: results, errs: make([]error, len(results))}
}

func (g *ScriptedGateway) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)

	i := g.idx
	if i >= len(g.results) {
		i = len(g.results) - 1
	}
	if g.idx < len(g.results) {
		g.idx++
	}
	return g.results[i], g.errs[i]
}

func (g *ScriptedGateway) Calls() []ports.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ports.ChargeRequest(nil), g.calls...)
}

// NoopPublisher is an EventPublisher that does nothing, for tests that
// don't care about outbox events.
type NoopPublisher struct{}

func (NoopPublisher) PublishPaymentOutcome(ctx context.Context, _ *domain.Payment) error {
	return nil
}
func (NoopPublisher) Close() error { return nil }
