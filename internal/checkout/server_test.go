package checkout

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"carrierhub/internal/payment"
	"carrierhub/pkg/contracts"
	"carrierhub/pkg/logger"
	"carrierhub/pkg/metrics"
	"carrierhub/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func startServer(t *testing.T, opts ...Option) (*Server, string) {
	t.Helper()

	srv := NewServer(Config{}, metrics.New(), logger.Discard(), opts...)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(l) }()

	deadline := time.Now().Add(time.Second)
	for !srv.Available() {
		if time.Now().After(deadline) {
			t.Fatal("server did not become available")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, "http://" + l.Addr().String()
}

func post(t *testing.T, url, body string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func callbackState(t *testing.T, env envelope) CallbackResponse {
	t.Helper()
	var out CallbackResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode callback response: %v (%s)", err, env.Data)
	}
	return out
}

func baseOptions(orderID string) payment.WidgetOptions {
	return payment.WidgetOptions{
		Key:      "rzp_test_key",
		Amount:   50000,
		Currency: "INR",
		OrderID:  orderID,
		Prefill:  payment.Prefill{Name: "Asha Rao", Email: "asha@example.com", Contact: "9876543210"},
		Theme:    payment.Theme{Color: "#3399cc"},
		Modal:    payment.Modal{Escape: true},
		Retry:    payment.RetryOptions{Enabled: true, MaxCount: 3},
		Timeout:  time.Minute,
		Handler:  func(payment.SuccessResponse) {},
	}
}

func TestServer_NotAvailableBeforeServe(t *testing.T) {
	srv := NewServer(Config{}, nil, logger.Discard())
	if srv.Available() {
		t.Error("server must not be available before Serve")
	}
}

func TestServer_New_Validation(t *testing.T) {
	srv := NewServer(Config{}, nil, logger.Discard())

	opts := baseOptions("")
	if _, err := srv.New(opts); err != ErrMissingOrderID {
		t.Errorf("expected ErrMissingOrderID, got %v", err)
	}

	opts = baseOptions("order_1")
	opts.Handler = nil
	if _, err := srv.New(opts); err != ErrMissingHandler {
		t.Errorf("expected ErrMissingHandler, got %v", err)
	}

	if _, err := srv.New(baseOptions("order_1")); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := srv.New(baseOptions("order_1")); err != ErrDuplicateOrder {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestServer_SuccessCallback(t *testing.T) {
	srv, base := startServer(t)

	received := make(chan payment.SuccessResponse, 1)
	opts := baseOptions("order_1")
	opts.Handler = func(resp payment.SuccessResponse) { received <- resp }

	w, err := srv.New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := w.Open(); err != ErrAlreadyOpened {
		t.Errorf("second Open() = %v, want ErrAlreadyOpened", err)
	}

	resp, err := http.Get(base + "/checkout/order_1")
	if err != nil {
		t.Fatalf("GET descriptor: %v", err)
	}
	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	resp.Body.Close()

	var d Descriptor
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode descriptor: %v", err)
	}
	if d.State != StateOpen || d.Amount != 50000 || d.Prefill.Contact != "9876543210" || d.AttemptsLeft != 4 {
		t.Errorf("unexpected descriptor: %+v", d)
	}

	status, env := post(t, base+"/checkout/order_1/success",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig_1"}`)
	if status != http.StatusOK || callbackState(t, env).State != StateCompleted {
		t.Fatalf("success callback: status %d, env %+v", status, env)
	}

	select {
	case got := <-received:
		if got.RazorpayPaymentID != "pay_1" || got.RazorpaySignature != "sig_1" {
			t.Errorf("unexpected response: %+v", got)
		}
	default:
		t.Fatal("handler was not called")
	}

	status, _ = post(t, base+"/checkout/order_1/success",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_2","razorpay_signature":"sig_2"}`)
	if status != http.StatusNotFound {
		t.Errorf("second success: status %d, want 404", status)
	}
}

func TestServer_SuccessCallback_Invalid(t *testing.T) {
	srv, base := startServer(t)

	w, _ := srv.New(baseOptions("order_1"))
	_ = w.Open()

	tests := []struct {
		name string
		url  string
		body string
		want int
	}{
		{"unknown order", base + "/checkout/order_x/success", `{"razorpay_order_id":"order_x"}`, http.StatusNotFound},
		{"order mismatch", base + "/checkout/order_1/success", `{"razorpay_order_id":"order_2","razorpay_payment_id":"p","razorpay_signature":"s"}`, http.StatusBadRequest},
		{"missing signature", base + "/checkout/order_1/success", `{"razorpay_order_id":"order_1","razorpay_payment_id":"p"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := post(t, tt.url, tt.body)
			if status != tt.want {
				t.Errorf("status = %d, want %d (%s)", status, tt.want, env.Error)
			}
			if env.Success {
				t.Error("expected a failed envelope")
			}
		})
	}
}

func TestServer_FailureConsumesRetries(t *testing.T) {
	srv, base := startServer(t)

	var failures, dismissals atomic.Int32
	opts := baseOptions("order_1")
	opts.Retry = payment.RetryOptions{Enabled: true, MaxCount: 2}
	opts.OnFailure = func(payment.FailureResponse) { failures.Add(1) }
	opts.Modal.OnDismiss = func() { dismissals.Add(1) }

	w, _ := srv.New(opts)
	_ = w.Open()

	body := `{"code":"BAD_REQUEST_ERROR","description":"Card declined"}`
	for i, wantLeft := range []int{2, 1} {
		status, env := post(t, base+"/checkout/order_1/failure", body)
		got := callbackState(t, env)
		if status != http.StatusOK || got.State != StateOpen || got.AttemptsLeft != wantLeft {
			t.Fatalf("failure %d: status %d, response %+v", i+1, status, got)
		}
	}

	status, env := post(t, base+"/checkout/order_1/failure", body)
	if status != http.StatusOK || callbackState(t, env).State != StateDismissed {
		t.Fatalf("final failure: status %d, env %+v", status, env)
	}
	if failures.Load() != 3 {
		t.Errorf("OnFailure called %d times, want 3", failures.Load())
	}
	if dismissals.Load() != 1 {
		t.Errorf("OnDismiss called %d times, want 1", dismissals.Load())
	}

	if status, _ := post(t, base+"/checkout/order_1/failure", body); status != http.StatusNotFound {
		t.Errorf("failure after dismissal: status %d, want 404", status)
	}
}

func TestServer_Dismiss(t *testing.T) {
	srv, base := startServer(t)

	var dismissals atomic.Int32
	opts := baseOptions("order_1")
	opts.Modal = payment.Modal{Escape: false, OnDismiss: func() { dismissals.Add(1) }}

	w, _ := srv.New(opts)
	_ = w.Open()

	if status, _ := post(t, base+"/checkout/order_1/dismiss", `{"reason":"escape"}`); status != http.StatusForbidden {
		t.Errorf("escape dismissal: status %d, want 403", status)
	}
	if status, _ := post(t, base+"/checkout/order_1/dismiss", `{"reason":"sideways"}`); status != http.StatusBadRequest {
		t.Errorf("unknown reason: status %d, want 400", status)
	}
	if status, _ := post(t, base+"/checkout/order_1/dismiss", ""); status != http.StatusOK {
		t.Errorf("user dismissal: status %d, want 200", status)
	}
	if dismissals.Load() != 1 {
		t.Errorf("OnDismiss called %d times, want 1", dismissals.Load())
	}
}

func TestServer_TimeoutDismisses(t *testing.T) {
	srv, _ := startServer(t)

	dismissed := make(chan struct{})
	opts := baseOptions("order_1")
	opts.Timeout = 20 * time.Millisecond
	opts.Modal.OnDismiss = func() { close(dismissed) }

	w, _ := srv.New(opts)
	_ = w.Open()

	select {
	case <-dismissed:
	case <-time.After(time.Second):
		t.Fatal("checkout did not time out")
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, base := startServer(t)

	w, _ := srv.New(baseOptions("order_1"))
	_ = w.Open()

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health HealthResponse
	_ = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()

	if health.Status != "ok" || health.OpenCheckouts != 1 {
		t.Errorf("unexpected health: %+v", health)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

type stubAPI struct {
	verified chan model.VerifyPaymentRequest
}

func (s *stubAPI) CreateBooking(context.Context, model.CreateBookingRequest) *model.Envelope[model.Booking] {
	return model.Ok(model.Booking{ID: 1, Status: model.StatusPending})
}

func (s *stubAPI) CreatePaymentOrder(context.Context, int) *model.Envelope[model.PaymentOrder] {
	return model.Ok(model.PaymentOrder{OrderID: "order_1", Amount: 50000, Currency: "INR", KeyID: "rzp_test_key"})
}

func (s *stubAPI) VerifyPayment(_ context.Context, req model.VerifyPaymentRequest) *model.Envelope[model.VerifyPaymentResponse] {
	s.verified <- req
	return model.Ok(model.VerifyPaymentResponse{Verified: true})
}

func TestServer_DrivesBridge(t *testing.T) {
	opened := make(chan string, 1)
	srv, base := startServer(t, WithOpenHook(func(orderID, _ string) { opened <- orderID }))

	api := &stubAPI{verified: make(chan model.VerifyPaymentRequest, 1)}
	bridge := payment.NewBridge(api, srv, nil, nil, nil, logger.Discard(), payment.Options{})

	type outcome struct {
		res payment.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := bridge.Pay(context.Background(), 1, payment.FormData{
			Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Amount: 50000,
		})
		done <- outcome{res, err}
	}()

	var orderID string
	select {
	case orderID = <-opened:
	case <-time.After(time.Second):
		t.Fatal("checkout was not opened")
	}

	status, _ := post(t, base+"/checkout/"+orderID+"/success",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig_1"}`)
	if status != http.StatusOK {
		t.Fatalf("success callback status = %d", status)
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("Pay() error = %v", got.err)
	}
	if !got.res.Succeeded() || !strings.HasSuffix(got.res.Redirect, "bookingId=1") {
		t.Errorf("unexpected result: %+v", got.res)
	}

	req := <-api.verified
	if req.RazorpayPaymentID != "pay_1" || req.BookingID != 1 {
		t.Errorf("unexpected verify request: %+v", req)
	}
}

func TestServer_ShutdownReleasesCheckout(t *testing.T) {
	opened := make(chan string, 1)
	srv, _ := startServer(t, WithOpenHook(func(orderID, _ string) { opened <- orderID }))

	api := &stubAPI{verified: make(chan model.VerifyPaymentRequest, 1)}
	bridge := payment.NewBridge(api, srv, nil, nil, nil, logger.Discard(), payment.Options{})

	done := make(chan payment.Result, 1)
	go func() {
		res, _ := bridge.Pay(context.Background(), 1, payment.FormData{
			Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Amount: 50000,
		})
		done <- res
	}()
	<-opened

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case res := <-done:
		if res.Outcome != payment.OutcomeCancelled {
			t.Errorf("Outcome = %s, want cancelled", res.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("Pay did not return after shutdown")
	}
}

func TestServer_WithRoutes(t *testing.T) {
	extra := contracts.HandlerFunc(func(r *httprouter.Router) {
		r.GET("/version", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusTeapot)
		})
	})
	_, base := startServer(t, WithRoutes(extra))

	resp, err := http.Get(base + "/version")
	if err != nil {
		t.Fatalf("GET /version: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}

	resp, err = http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestServer_ReleasesFinishedCheckouts(t *testing.T) {
	srv, base := startServer(t)

	for i := 0; i < 100; i++ {
		w, err := srv.New(baseOptions("order_1"))
		if err != nil {
			t.Fatalf("cycle %d: New() error = %v", i, err)
		}
		if err := w.Open(); err != nil {
			t.Fatalf("cycle %d: Open() error = %v", i, err)
		}
		if status, env := post(t, base+"/checkout/order_1/dismiss", `{"reason":"user"}`); status != http.StatusOK {
			t.Fatalf("cycle %d: dismiss status %d (%s)", i, status, env.Error)
		}
	}

	w, _ := srv.New(baseOptions("order_2"))
	_ = w.Open()
	status, _ := post(t, base+"/checkout/order_2/success",
		`{"razorpay_order_id":"order_2","razorpay_payment_id":"pay_1","razorpay_signature":"sig_1"}`)
	if status != http.StatusOK {
		t.Fatalf("success status %d", status)
	}

	srv.mu.Lock()
	retained := len(srv.widgets)
	srv.mu.Unlock()
	if retained != 0 {
		t.Errorf("retained %d finished checkouts, want 0", retained)
	}
	if n := srv.openCount(); n != 0 {
		t.Errorf("openCount() = %d, want 0", n)
	}

	resp, err := http.Get(base + "/checkout/order_2")
	if err != nil {
		t.Fatalf("GET descriptor: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("descriptor of a finished checkout: status %d, want 404", resp.StatusCode)
	}
}

func TestServer_ReleaseKeepsNewerWidget(t *testing.T) {
	srv, _ := startServer(t)

	first, _ := srv.New(baseOptions("order_1"))
	_ = first.Open()
	_ = first.(*widget).dismiss(DismissUser)

	second, err := srv.New(baseOptions("order_1"))
	if err != nil {
		t.Fatalf("New() after dismissal error = %v", err)
	}
	srv.release(first.(*widget))

	if got, ok := srv.lookup("order_1"); !ok || got != second.(*widget) {
		t.Error("releasing a stale widget must not drop the newer one")
	}
}
