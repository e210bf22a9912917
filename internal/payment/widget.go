package payment

import (
	"time"
)

// SuccessResponse carries the identifiers the checkout provider signs
// after a completed payment.
type SuccessResponse struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// FailureResponse describes one failed attempt inside the widget. The
// widget may still succeed on a later attempt.
type FailureResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

type Modal struct {
	OnDismiss     func() `json:"-"`
	Escape        bool   `json:"escape"`
	BackdropClose bool   `json:"backdropclose"`
}

type RetryOptions struct {
	Enabled  bool `json:"enabled"`
	MaxCount int  `json:"max_count"`
}

// WidgetOptions configures one checkout widget. Handler runs once the
// payment succeeds; Modal.OnDismiss runs when the user closes the widget
// or it gives up.
type WidgetOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       Theme             `json:"theme"`
	Modal       Modal             `json:"modal"`
	Retry       RetryOptions      `json:"retry"`
	Timeout     time.Duration     `json:"-"`

	Handler   func(SuccessResponse) `json:"-"`
	OnFailure func(FailureResponse) `json:"-"`
}

type Widget interface {
	Open() error
}

// WidgetFactory is the checkout provider. It may not be ready yet; callers
// check Available before building a widget.
type WidgetFactory interface {
	Available() bool
	New(opts WidgetOptions) (Widget, error)
}
