package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/brightlane/paymentflow/internal/domain"
)

const topic = "payments.events"

// KafkaPublisher fans out payment outcome transitions to a Kafka topic,
// keyed by payment id so a downstream consumer sees ordered updates for
// a given payment. Publishing happens after the owning transaction has
// already committed; a publish failure is surfaced to the caller to log
// but never rolls anything back.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokerURL string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerURL),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

type paymentOutcomeEvent struct {
	PaymentID  int64  `json:"payment_id"`
	UserID     int64  `json:"user_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	Commission string `json:"commission"`
	LastError  string `json:"last_error,omitempty"`
}

func (p *KafkaPublisher) PublishPaymentOutcome(ctx context.Context, payment *domain.Payment) error {
	evt := paymentOutcomeEvent{
		PaymentID:  payment.ID,
		UserID:     payment.UserID,
		Type:       string(payment.Type),
		Status:     string(payment.Status),
		Amount:     payment.Amount.String(),
		Commission: payment.Commission.String(),
	}
	if payment.LastError != nil {
		evt.LastError = *payment.LastError
	}

	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal payment outcome event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(payment.ID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish payment outcome: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
