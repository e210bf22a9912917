package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"carrierhub/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultFetchRetryDelay = time.Second
	DefaultMaxWait         = 500 * time.Millisecond
)

var (
	ErrConsumerClosed = errors.New("events: consumer is closed")
	ErrNoHandler      = errors.New("events: message handler cannot be nil")
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables committed offsets; without it the consumer reads
	// partition 0 from StartOffset every time.
	GroupID string
	// StartOffset is kafka.FirstOffset or kafka.LastOffset; zero means
	// LastOffset.
	StartOffset int64
	MaxWait     time.Duration
}

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type MessageHandler func(ctx context.Context, msg Message) error

type Consumer struct {
	reader     Reader
	handler    MessageHandler
	log        *logger.Logger
	observer   EventObserver
	retryDelay time.Duration
	commit     bool

	mu     sync.Mutex
	closed bool
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: cfg.StartOffset,
		MaxWait:     cfg.MaxWait,
		Logger:      kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("Kafka reader error", "detail", fmt.Sprintf(msg, args...))
		}),
	})

	c := NewConsumerWithReader(reader, handler, log)
	c.commit = cfg.GroupID != ""
	return c, nil
}

// NewConsumerWithReader wraps an existing reader and commits every handled
// message.
func NewConsumerWithReader(r Reader, handler MessageHandler, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		handler:    handler,
		log:        log,
		retryDelay: DefaultFetchRetryDelay,
		commit:     true,
	}
}

// WithObserver reports every handled message to obs.
func (c *Consumer) WithObserver(obs EventObserver) *Consumer {
	c.observer = obs
	return c
}

// Run consumes until ctx is done. A handler error is logged and the
// message is still committed so one bad event cannot stall the stream.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.mu.Unlock()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("Failed to fetch event", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		msg := fromKafka(kafkaMsg)
		start := time.Now()
		err = c.handler(ctx, msg)
		if c.observer != nil {
			c.observer.ObserveEvent("consume", err, time.Since(start))
		}
		if err != nil {
			c.log.Error("Failed to handle event",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.EventID(),
				"error", err,
			)
		}

		if !c.commit {
			continue
		}
		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil && ctx.Err() == nil {
			c.log.Warn("Failed to commit event offset", "topic", msg.Topic, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.reader.Close()
}

func fromKafka(m kafka.Message) Message {
	msg := Message{
		Key:       string(m.Key),
		Value:     m.Value,
		Headers:   make(map[string]string, len(m.Headers)),
		Topic:     m.Topic,
		Timestamp: m.Time,
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// PaymentHandler decodes payment outcome events and skips every other
// event type.
func PaymentHandler(fn func(ctx context.Context, ev PaymentEvent) error) MessageHandler {
	return func(ctx context.Context, msg Message) error {
		if msg.Headers[HeaderEventType] != EventPaymentOutcome {
			return nil
		}
		var ev PaymentEvent
		if err := msg.DecodeValue(&ev); err != nil {
			return fmt.Errorf("events: malformed payment event %s: %w", msg.EventID(), err)
		}
		return fn(ctx, ev)
	}
}
