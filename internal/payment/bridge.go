package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"carrierhub/pkg/errors"
	"carrierhub/pkg/events"
	"carrierhub/pkg/logger"
	"carrierhub/pkg/metrics"
	"carrierhub/pkg/model"
)

var ErrPaymentSystemNotLoaded = stderrors.New("payment system not loaded, please refresh the page and try again")

const (
	DefaultRetryCount  = 3
	DefaultTimeout     = 15 * time.Minute
	DefaultThemeColor  = "#3399cc"
	DefaultCompanyName = "CarrierHub"
	DefaultDescription = "Consultation booking"

	successPath = "/payment/success"
)

type Outcome string

const (
	OutcomeSucceeded          Outcome = "succeeded"
	OutcomeVerificationFailed Outcome = "verification_failed"
	OutcomeCancelled          Outcome = "cancelled"
)

const (
	msgSucceeded          = "Payment successful! Your booking is confirmed."
	msgVerificationFailed = "Payment verification failed. Please contact support if the amount was deducted."
	msgCancelled          = "Payment cancelled. You can retry the payment from your dashboard."
)

// Result is how one checkout ended. Redirect is only set on success.
type Result struct {
	Outcome   Outcome
	BookingID int
	OrderID   string
	PaymentID string
	Redirect  string
	Message   string
	Booking   *model.Booking
	Notice    *errors.Notice
}

func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// API is the subset of the backend client the bridge talks to.
type API interface {
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) *model.Envelope[model.Booking]
	CreatePaymentOrder(ctx context.Context, bookingID int) *model.Envelope[model.PaymentOrder]
	VerifyPayment(ctx context.Context, req model.VerifyPaymentRequest) *model.Envelope[model.VerifyPaymentResponse]
}

type Options struct {
	CompanyName string
	Description string
	ThemeColor  string
	RetryCount  int
	Timeout     time.Duration
}

func DefaultOptions() Options {
	return Options{
		CompanyName: DefaultCompanyName,
		Description: DefaultDescription,
		ThemeColor:  DefaultThemeColor,
		RetryCount:  DefaultRetryCount,
		Timeout:     DefaultTimeout,
	}
}

type Bridge struct {
	api       API
	widgets   WidgetFactory
	publisher events.Publisher
	metrics   *metrics.Metrics
	errs      *errors.Handler
	log       *logger.Logger
	opts      Options
	now       func() time.Time
}

func NewBridge(api API, widgets WidgetFactory, publisher events.Publisher, m *metrics.Metrics, errs *errors.Handler, log *logger.Logger, opts Options) *Bridge {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if errs == nil {
		errs = errors.NewHandler(nil, log)
	}
	defaults := DefaultOptions()
	if opts.CompanyName == "" {
		opts.CompanyName = defaults.CompanyName
	}
	if opts.Description == "" {
		opts.Description = defaults.Description
	}
	if opts.ThemeColor == "" {
		opts.ThemeColor = defaults.ThemeColor
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = defaults.RetryCount
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}

	return &Bridge{
		api:       api,
		widgets:   widgets,
		publisher: publisher,
		metrics:   m,
		errs:      errs,
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
}

// Ready reports whether a checkout widget can be opened right now.
func (b *Bridge) Ready() bool {
	return b.widgets != nil && b.widgets.Available()
}

// BookAndPay creates the booking and then runs Pay for it. The widget and
// the form are checked before the booking is created.
func (b *Bridge) BookAndPay(ctx context.Context, req model.CreateBookingRequest, form FormData) (Result, error) {
	if !b.Ready() {
		return Result{}, ErrPaymentSystemNotLoaded
	}
	form.Amount = req.Amount
	if v := ValidatePaymentData(form); !v.IsValid {
		return Result{}, v.AppError()
	}

	env := b.api.CreateBooking(ctx, req)
	if !env.Success {
		return Result{}, env.AsError()
	}

	b.log.Info("Booking created", "booking_id", env.Data.ID, "status", env.Data.Status)
	return b.Pay(ctx, env.Data.ID, form)
}

// Pay opens the checkout for an existing booking and blocks until the
// widget reports success or dismissal. Verification of a successful
// payment happens before Pay returns.
func (b *Bridge) Pay(ctx context.Context, bookingID int, form FormData) (Result, error) {
	if !b.Ready() {
		return Result{}, ErrPaymentSystemNotLoaded
	}
	if v := ValidatePaymentData(form); !v.IsValid {
		return Result{}, v.AppError()
	}

	orderEnv := b.api.CreatePaymentOrder(ctx, bookingID)
	if !orderEnv.Success {
		appErr := errors.Classify(orderEnv.AsError(), true)
		b.errs.Handle(appErr, errors.HandleOptions{Payment: true, Context: "create payment order"})
		return Result{}, appErr
	}
	order := orderEnv.Data

	c := &checkout{
		bridge:    b,
		ctx:       ctx,
		bookingID: bookingID,
		order:     order,
		done:      make(chan Result, 1),
	}

	widget, err := b.widgets.New(b.BuildOptions(order, form, bookingID, c.succeeded, c.dismissed, c.failed))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPaymentSystemNotLoaded, err)
	}
	if err := widget.Open(); err != nil {
		return Result{}, fmt.Errorf("failed to open checkout: %w", err)
	}

	b.log.Info("Checkout opened", "booking_id", bookingID, "order_id", order.OrderID, "amount", order.Amount)

	select {
	case res := <-c.done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// BuildOptions maps an order and the form onto widget options.
func (b *Bridge) BuildOptions(order model.PaymentOrder, form FormData, bookingID int, onSuccess func(SuccessResponse), onDismiss func(), onFailure func(FailureResponse)) WidgetOptions {
	normalized := form.Normalize()
	return WidgetOptions{
		Key:         order.KeyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        b.opts.CompanyName,
		Description: b.opts.Description,
		OrderID:     order.OrderID,
		Prefill: Prefill{
			Name:    normalized.Name,
			Email:   normalized.Email,
			Contact: normalized.Phone,
		},
		Notes: map[string]string{
			"bookingId": strconv.Itoa(bookingID),
		},
		Theme: Theme{Color: b.opts.ThemeColor},
		Modal: Modal{
			OnDismiss:     onDismiss,
			Escape:        true,
			BackdropClose: false,
		},
		Retry: RetryOptions{
			Enabled:  true,
			MaxCount: b.opts.RetryCount,
		},
		Timeout:   b.opts.Timeout,
		Handler:   onSuccess,
		OnFailure: onFailure,
	}
}

// checkout tracks one open widget. Only the first terminal callback counts.
type checkout struct {
	bridge    *Bridge
	ctx       context.Context
	bookingID int
	order     model.PaymentOrder
	once      sync.Once
	done      chan Result
}

func (c *checkout) succeeded(resp SuccessResponse) {
	c.once.Do(func() {
		c.done <- c.bridge.verify(c.ctx, c.bookingID, c.order, resp)
	})
}

func (c *checkout) dismissed() {
	c.once.Do(func() {
		res := Result{
			Outcome:   OutcomeCancelled,
			BookingID: c.bookingID,
			OrderID:   c.order.OrderID,
			Message:   msgCancelled,
		}
		c.bridge.log.Info("Checkout dismissed", "booking_id", c.bookingID, "order_id", c.order.OrderID)
		c.bridge.record(c.ctx, res, c.order)
		c.done <- res
	})
}

func (c *checkout) failed(resp FailureResponse) {
	c.bridge.log.Warn("Payment attempt failed",
		"booking_id", c.bookingID,
		"order_id", c.order.OrderID,
		"code", resp.Code,
		"description", resp.Description,
		"reason", resp.Reason,
	)
}

func (b *Bridge) verify(ctx context.Context, bookingID int, order model.PaymentOrder, resp SuccessResponse) Result {
	env := b.api.VerifyPayment(ctx, model.VerifyPaymentRequest{
		RazorpayOrderID:   resp.RazorpayOrderID,
		RazorpayPaymentID: resp.RazorpayPaymentID,
		RazorpaySignature: resp.RazorpaySignature,
		BookingID:         bookingID,
	})

	res := Result{
		BookingID: bookingID,
		OrderID:   resp.RazorpayOrderID,
		PaymentID: resp.RazorpayPaymentID,
	}

	if env.Success {
		res.Outcome = OutcomeSucceeded
		res.Message = msgSucceeded
		res.Redirect = successPath + "?bookingId=" + strconv.Itoa(bookingID)
		res.Booking = env.Data.Booking
		b.log.Info("Payment verified", "booking_id", bookingID, "payment_id", resp.RazorpayPaymentID)
	} else {
		res.Outcome = OutcomeVerificationFailed
		res.Message = msgVerificationFailed
		notice := b.errs.Handle(errors.Classify(env.AsError(), true), errors.HandleOptions{
			Payment: true,
			Context: "verify payment",
		})
		res.Notice = &notice
	}

	b.record(ctx, res, order)
	return res
}

func (b *Bridge) record(ctx context.Context, res Result, order model.PaymentOrder) {
	b.metrics.ObservePayment(string(res.Outcome))

	err := b.publisher.PublishPayment(ctx, events.PaymentEvent{
		BookingID:  res.BookingID,
		OrderID:    order.OrderID,
		PaymentID:  res.PaymentID,
		Outcome:    string(res.Outcome),
		Amount:     order.Amount,
		Currency:   order.Currency,
		Message:    res.Message,
		OccurredAt: b.now().UTC(),
	})
	if err != nil {
		b.log.Warn("Failed to publish payment event",
			"booking_id", res.BookingID,
			"outcome", res.Outcome,
			"error", err,
		)
	}
}
