package model

import (
	"carrierhub/pkg/errors"
)

// Envelope is the uniform result of every API call. Success=false always
// carries a non-empty Error. StatusCode and Attempts describe the transport
// and are never serialised.
type Envelope[T any] struct {
	Success bool                 `json:"success"`
	Data    T                    `json:"data,omitempty"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
	Details []errors.FieldDetail `json:"details,omitempty"`

	StatusCode int              `json:"-"`
	Attempts   int              `json:"-"`
	Err        *errors.AppError `json:"-"`
}

func Ok[T any](data T) *Envelope[T] {
	return &Envelope[T]{Success: true, Data: data}
}

// Fail builds a failed envelope from a classified error.
func Fail[T any](appErr *errors.AppError) *Envelope[T] {
	msg := appErr.Message
	if msg == "" {
		msg = errors.DefaultMessage(appErr.Kind)
	}
	return &Envelope[T]{
		Success:    false,
		Error:      msg,
		Details:    appErr.Fields,
		StatusCode: appErr.HTTPStatus,
		Err:        appErr,
	}
}

// AsError returns nil for a successful envelope and the classified error
// otherwise.
func (e *Envelope[T]) AsError() error {
	if e == nil || e.Success {
		return nil
	}
	if e.Err != nil {
		return e.Err
	}
	return errors.FromEnvelope(e.StatusCode, e.Error, e.Details, false)
}
