package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNetwork      = "NETWORK_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodePayment      = "PAYMENT_ERROR"
	CodeServer       = "SERVER_ERROR"
	CodeClient       = "CLIENT_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// Kind is the user-facing failure category.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindPayment    Kind = "payment"
	KindServer     Kind = "server"
	KindClient     Kind = "client"
)

// FieldDetail is one entry of a validation-shaped response body.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Kind       Kind           `json:"kind"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Fields     []FieldDetail  `json:"fields,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

func New(kind Kind, code, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, kind Kind, code, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithFields(fields []FieldDetail) *AppError {
	e.Fields = fields
	return e
}

func Network(message string, err error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Code:    CodeNetwork,
		Message: message,
		Err:     err,
	}
}

func Timeout(message string, err error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Code:    CodeTimeout,
		Message: message,
		Err:     err,
	}
}

func Validation(message string, fields []FieldDetail) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Fields:     fields,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Kind:       KindAuth,
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Kind:       KindAuth,
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Payment(message string, err error) *AppError {
	return &AppError{
		Kind:    KindPayment,
		Code:    CodePayment,
		Message: message,
		Err:     err,
	}
}

func Server(message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       KindServer,
		Code:       CodeServer,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Kind:       KindClient,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:    KindClient,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
