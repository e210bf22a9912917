package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carrierhub/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_PublishPayment(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(NewProducerWithWriter(w, "payments"))

	ev := PaymentEvent{
		BookingID:  1,
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Outcome:    "succeeded",
		Amount:     50000,
		Currency:   "INR",
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := p.PublishPayment(context.Background(), ev); err != nil {
		t.Fatalf("PublishPayment() error: %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "1" {
		t.Errorf("Key = %q, want booking id", msg.Key)
	}
	if header(msg, HeaderEventType) != EventPaymentOutcome {
		t.Errorf("event type = %q", header(msg, HeaderEventType))
	}
	if header(msg, HeaderCorrelationID) != "order_1" {
		t.Errorf("correlation id = %q", header(msg, HeaderCorrelationID))
	}
	if header(msg, HeaderEventID) == "" {
		t.Error("event id should be generated")
	}

	decoded := Message{Value: msg.Value}
	var got PaymentEvent
	if err := decoded.DecodeValue(&got); err != nil {
		t.Fatalf("DecodeValue() error: %v", err)
	}
	if got.PaymentID != "pay_1" || got.Outcome != "succeeded" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestProducer_MiddlewareOrderAndErrors(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "payments")

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		return next(ctx, msg)
	})
	p.Use(LoggingMiddleware(logger.Discard()))

	msg, _ := NewMessage().WithKey("k").WithValue(map[string]int{"a": 1}).Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), msg); err == nil {
		t.Error("writer errors must propagate")
	}
}

func TestProducer_Validation(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "payments")

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	_ = p.Close()
	if !w.closed {
		t.Error("Close() should close the writer")
	}
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestNewProducer_RequiresBrokersAndTopic(t *testing.T) {
	if _, err := NewProducer(ProducerConfig{Topic: "t"}, logger.Discard()); !errors.Is(err, ErrNoBrokers) {
		t.Errorf("expected ErrNoBrokers, got %v", err)
	}
	if _, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, logger.Discard()); !errors.Is(err, ErrNoTopic) {
		t.Errorf("expected ErrNoTopic, got %v", err)
	}

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "payments"}, logger.Discard())
	if err != nil {
		t.Fatalf("NewProducer() error: %v", err)
	}
	_ = p.Close()
}

func TestMessageBuilder_ValueError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if err == nil {
		t.Error("unencodable value should fail Build()")
	}
}
