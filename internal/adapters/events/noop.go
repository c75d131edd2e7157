package events

import (
	"context"

	"github.com/brightlane/paymentflow/internal/domain"
)

// NoopPublisher is the default EventPublisher: publishing payment
// outcome events is an optional ambient concern, never required for
// engine correctness.
type NoopPublisher struct{}

func (NoopPublisher) PublishPaymentOutcome(ctx context.Context, _ *domain.Payment) error { return nil }
func (NoopPublisher) Close() error                                                       { return nil }
