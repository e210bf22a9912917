package events

import (
	"context"
	"strconv"
	"time"
)

const (
	EventPaymentOutcome = "payment.outcome"
	schemaVersion       = "1"
	source              = "carrierhub-client"
)

// PaymentEvent records how a checkout attempt ended.
type PaymentEvent struct {
	BookingID  int       `json:"bookingId"`
	OrderID    string    `json:"orderId,omitempty"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Outcome    string    `json:"outcome"`
	Amount     int64     `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishPayment(ctx context.Context, ev PaymentEvent) error
	Close() error
}

// KafkaPublisher writes payment events keyed by booking id so every event
// for one booking lands on the same partition.
type KafkaPublisher struct {
	producer *Producer
}

func NewKafkaPublisher(p *Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (k *KafkaPublisher) PublishPayment(ctx context.Context, ev PaymentEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	msg, err := NewMessage().
		WithKey(strconv.Itoa(ev.BookingID)).
		WithValue(ev).
		WithEventType(EventPaymentOutcome).
		WithCorrelationID(ev.OrderID).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		WithTimestamp(ev.OccurredAt).
		Build()
	if err != nil {
		return err
	}
	return k.producer.Publish(ctx, msg)
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

// NoopPublisher discards events when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPayment(context.Context, PaymentEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
