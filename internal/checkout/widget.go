package checkout

import (
	"errors"
	"sync"
	"time"

	"carrierhub/internal/payment"
)

var (
	ErrAlreadyOpened   = errors.New("checkout already opened")
	ErrNotOpen         = errors.New("checkout is not open")
	ErrDismissDisabled = errors.New("checkout cannot be dismissed this way")
	ErrDuplicateOrder  = errors.New("checkout already registered for order")
	ErrMissingOrderID  = errors.New("checkout requires an order id")
	ErrMissingHandler  = errors.New("checkout requires a success handler")
)

type State string

const (
	StateCreated   State = "created"
	StateOpen      State = "open"
	StateCompleted State = "completed"
	StateDismissed State = "dismissed"
)

type DismissReason string

const (
	DismissUser     DismissReason = "user"
	DismissEscape   DismissReason = "escape"
	DismissBackdrop DismissReason = "backdrop"
	DismissTimeout  DismissReason = "timeout"
	DismissRetries  DismissReason = "retries_exhausted"
	DismissShutdown DismissReason = "shutdown"
)

// widget is one hosted checkout. It moves created -> open -> completed or
// dismissed, and exactly one terminal callback reaches the bridge.
type widget struct {
	server *Server
	opts   payment.WidgetOptions

	mu       sync.Mutex
	state    State
	failures int
	timer    *time.Timer
	expires  time.Time
}

func (w *widget) Open() error {
	w.mu.Lock()
	if w.state != StateCreated {
		w.mu.Unlock()
		return ErrAlreadyOpened
	}
	w.state = StateOpen
	if w.opts.Timeout > 0 {
		w.expires = w.server.now().Add(w.opts.Timeout)
		w.timer = time.AfterFunc(w.opts.Timeout, func() {
			_ = w.dismiss(DismissTimeout)
		})
	}
	w.mu.Unlock()

	w.server.opened(w)
	return nil
}

func (w *widget) complete(resp payment.SuccessResponse) error {
	w.mu.Lock()
	if w.state != StateOpen {
		w.mu.Unlock()
		return ErrNotOpen
	}
	w.state = StateCompleted
	w.stopTimer()
	w.mu.Unlock()

	w.server.release(w)
	w.opts.Handler(resp)
	return nil
}

// fail records a failed attempt. It reports whether the widget is still
// open for another attempt.
func (w *widget) fail(resp payment.FailureResponse) (bool, error) {
	w.mu.Lock()
	if w.state != StateOpen {
		w.mu.Unlock()
		return false, ErrNotOpen
	}
	w.failures++
	exhausted := !w.opts.Retry.Enabled || w.failures > w.opts.Retry.MaxCount
	w.mu.Unlock()

	if w.opts.OnFailure != nil {
		w.opts.OnFailure(resp)
	}
	if exhausted {
		if err := w.dismiss(DismissRetries); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (w *widget) dismiss(reason DismissReason) error {
	w.mu.Lock()
	if w.state != StateOpen {
		w.mu.Unlock()
		return ErrNotOpen
	}
	if (reason == DismissEscape && !w.opts.Modal.Escape) || (reason == DismissBackdrop && !w.opts.Modal.BackdropClose) {
		w.mu.Unlock()
		return ErrDismissDisabled
	}
	w.state = StateDismissed
	w.stopTimer()
	w.mu.Unlock()

	w.server.release(w)
	w.server.log.Info("Checkout dismissed", "order_id", w.opts.OrderID, "reason", reason)
	if w.opts.Modal.OnDismiss != nil {
		w.opts.Modal.OnDismiss()
	}
	return nil
}

// attemptsLeft must be called with mu held.
func (w *widget) attemptsLeft() int {
	if !w.opts.Retry.Enabled {
		return 1 - w.failures
	}
	return w.opts.Retry.MaxCount + 1 - w.failures
}

func (w *widget) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Descriptor is what the hosted page needs to render the checkout.
type Descriptor struct {
	OrderID      string            `json:"orderId"`
	Key          string            `json:"key"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Prefill      payment.Prefill   `json:"prefill"`
	Notes        map[string]string `json:"notes,omitempty"`
	Theme        payment.Theme     `json:"theme"`
	Modal        payment.Modal     `json:"modal"`
	State        State             `json:"state"`
	AttemptsLeft int               `json:"attemptsLeft"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
}

func (w *widget) describe() Descriptor {
	w.mu.Lock()
	defer w.mu.Unlock()

	d := Descriptor{
		OrderID:      w.opts.OrderID,
		Key:          w.opts.Key,
		Amount:       w.opts.Amount,
		Currency:     w.opts.Currency,
		Name:         w.opts.Name,
		Description:  w.opts.Description,
		Prefill:      w.opts.Prefill,
		Notes:        w.opts.Notes,
		Theme:        w.opts.Theme,
		Modal:        w.opts.Modal,
		State:        w.state,
		AttemptsLeft: w.attemptsLeft(),
	}
	if !w.expires.IsZero() {
		expires := w.expires
		d.ExpiresAt = &expires
	}
	return d
}
