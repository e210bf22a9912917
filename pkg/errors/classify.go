package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
)

// Signal holds the raw facts about one failure before it is classified.
type Signal struct {
	Status    int
	Message   string
	Fields    []FieldDetail
	Payment   bool
	Transport bool
	Timeout   bool
	Err       error
}

var (
	authPatterns = []string{
		"unauthorized",
		"unauthenticated",
		"not authenticated",
		"authentication",
		"invalid token",
		"token expired",
		"jwt",
		"forbidden",
		"access denied",
		"please login",
		"please log in",
	}
	paymentPatterns = []string{
		"payment",
		"razorpay",
		"checkout",
		"signature",
	}
	networkPatterns = []string{
		"failed to fetch",
		"network",
		"cors",
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"deadline exceeded",
	}
)

// KindOf applies the precedence auth, payment, validation, server, network,
// client and returns the first kind whose signal is present.
func KindOf(s Signal) Kind {
	msg := strings.ToLower(s.Message)
	if s.Err != nil {
		msg += " " + strings.ToLower(s.Err.Error())
	}

	switch {
	case s.Status == http.StatusUnauthorized || s.Status == http.StatusForbidden || containsAny(msg, authPatterns):
		return KindAuth
	case s.Payment || containsAny(msg, paymentPatterns):
		return KindPayment
	case len(s.Fields) > 0 || s.Status == http.StatusUnprocessableEntity:
		return KindValidation
	case s.Status >= http.StatusInternalServerError:
		return KindServer
	case s.Transport || s.Timeout || isTransportError(s.Err) || (s.Status == 0 && containsAny(msg, networkPatterns)):
		return KindNetwork
	default:
		return KindClient
	}
}

// FromSignal classifies the signal and builds the matching AppError.
func FromSignal(s Signal) *AppError {
	kind := KindOf(s)
	message := s.Message
	if message == "" {
		message = DefaultMessage(kind)
	}

	appErr := &AppError{
		Kind:       kind,
		Code:       codeFor(kind, s),
		Message:    message,
		HTTPStatus: s.Status,
		Fields:     s.Fields,
		Err:        s.Err,
	}
	return appErr
}

// Classify turns an arbitrary error into an AppError. In payment context
// every kind but auth becomes payment; message and fields are kept.
func Classify(err error, payment bool) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if payment && appErr.Kind != KindAuth && appErr.Kind != KindPayment {
			upgraded := *appErr
			upgraded.Kind = KindPayment
			upgraded.Code = CodePayment
			return &upgraded
		}
		return appErr
	}

	return FromSignal(Signal{
		Message: err.Error(),
		Payment: payment,
		Timeout: stderrors.Is(err, context.DeadlineExceeded),
		Err:     err,
	})
}

func codeFor(kind Kind, s Signal) string {
	switch kind {
	case KindAuth:
		if s.Status == http.StatusForbidden {
			return CodeForbidden
		}
		return CodeUnauthorized
	case KindPayment:
		return CodePayment
	case KindValidation:
		return CodeValidation
	case KindServer:
		return CodeServer
	case KindNetwork:
		if s.Timeout {
			return CodeTimeout
		}
		return CodeNetwork
	default:
		if s.Status == http.StatusNotFound {
			return CodeNotFound
		}
		return CodeClient
	}
}

func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// FromEnvelope re-classifies a failed response envelope.
func FromEnvelope(status int, message string, fields []FieldDetail, payment bool) *AppError {
	return FromSignal(Signal{
		Status:  status,
		Message: message,
		Fields:  fields,
		Payment: payment,
	})
}
