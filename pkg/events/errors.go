package events

import "errors"

var (
	ErrProducerClosed = errors.New("events: producer is closed")
	ErrEmptyKey       = errors.New("events: message key cannot be empty")
	ErrEmptyValue     = errors.New("events: message value cannot be empty")
	ErrNoBrokers      = errors.New("events: at least one broker is required")
	ErrNoTopic        = errors.New("events: topic cannot be empty")
)
