package checkout

import (
	"errors"
	"net/http"

	"carrierhub/internal/payment"
	"carrierhub/pkg/contracts"
	apperrors "carrierhub/pkg/errors"
	httputil "carrierhub/pkg/http"
	"carrierhub/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

var _ contracts.Handler = (*handler)(nil)

type handler struct {
	server *Server
	log    *logger.Logger
}

type HealthResponse struct {
	Status        string `json:"status"`
	OpenCheckouts int    `json:"openCheckouts"`
}

type CallbackResponse struct {
	OrderID      string `json:"orderId"`
	State        State  `json:"state"`
	AttemptsLeft int    `json:"attemptsLeft,omitempty"`
}

type dismissRequest struct {
	Reason DismissReason `json:"reason"`
}

func (h *handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/checkout/:orderId", h.Describe)
	router.POST("/checkout/:orderId/success", h.Success)
	router.POST("/checkout/:orderId/failure", h.Failure)
	router.POST("/checkout/:orderId/dismiss", h.Dismiss)
	if h.server.metrics != nil {
		router.Handler(http.MethodGet, "/metrics", h.server.metrics.Handler())
	}
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := "ok"
	if !h.server.Available() {
		status = "starting"
	}
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		OpenCheckouts: h.server.openCount(),
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *handler) Describe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	wd, ok := h.widget(w, ps)
	if !ok {
		return
	}
	if err := httputil.WriteSuccess(w, http.StatusOK, wd.describe()); err != nil {
		h.log.Error("failed to write success response", "handler", "Describe", "operation", "WriteSuccess", "error", err)
	}
}

func (h *handler) Success(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	wd, ok := h.widget(w, ps)
	if !ok {
		return
	}

	var resp payment.SuccessResponse
	if err := httputil.DecodeJSON(r, &resp); err != nil {
		h.writeError(w, "Success", err)
		return
	}

	var fields []apperrors.FieldDetail
	if resp.RazorpayOrderID != wd.opts.OrderID {
		fields = append(fields, apperrors.FieldDetail{Field: "razorpay_order_id", Message: "does not match the checkout order"})
	}
	if resp.RazorpayPaymentID == "" {
		fields = append(fields, apperrors.FieldDetail{Field: "razorpay_payment_id", Message: "is required"})
	}
	if resp.RazorpaySignature == "" {
		fields = append(fields, apperrors.FieldDetail{Field: "razorpay_signature", Message: "is required"})
	}
	if len(fields) > 0 {
		h.writeError(w, "Success", apperrors.Validation("Invalid payment callback", fields))
		return
	}

	if err := wd.complete(resp); err != nil {
		h.writeConflict(w, "Success", err)
		return
	}

	h.writeState(w, "Success", CallbackResponse{OrderID: wd.opts.OrderID, State: StateCompleted})
}

func (h *handler) Failure(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	wd, ok := h.widget(w, ps)
	if !ok {
		return
	}

	var resp payment.FailureResponse
	if err := httputil.DecodeJSON(r, &resp); err != nil {
		h.writeError(w, "Failure", err)
		return
	}

	stillOpen, err := wd.fail(resp)
	if err != nil {
		h.writeConflict(w, "Failure", err)
		return
	}

	out := CallbackResponse{OrderID: wd.opts.OrderID, State: StateDismissed}
	if stillOpen {
		wd.mu.Lock()
		out.State = StateOpen
		out.AttemptsLeft = wd.attemptsLeft()
		wd.mu.Unlock()
	}
	h.writeState(w, "Failure", out)
}

func (h *handler) Dismiss(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	wd, ok := h.widget(w, ps)
	if !ok {
		return
	}

	req := dismissRequest{Reason: DismissUser}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Dismiss", err)
		return
	}

	switch req.Reason {
	case DismissUser, DismissEscape, DismissBackdrop:
	default:
		h.writeError(w, "Dismiss", apperrors.Validation("Invalid dismiss reason",
			[]apperrors.FieldDetail{{Field: "reason", Message: "must be one of user, escape, backdrop"}}))
		return
	}

	if err := wd.dismiss(req.Reason); err != nil {
		h.writeConflict(w, "Dismiss", err)
		return
	}

	h.writeState(w, "Dismiss", CallbackResponse{OrderID: wd.opts.OrderID, State: StateDismissed})
}

func (h *handler) widget(w http.ResponseWriter, ps httprouter.Params) (*widget, bool) {
	orderID := ps.ByName("orderId")
	wd, ok := h.server.lookup(orderID)
	if !ok {
		if err := httputil.WriteFailure(w, http.StatusNotFound, "Checkout not found"); err != nil {
			h.log.Error("failed to write failure response", "operation", "WriteFailure", "error", err)
		}
		return nil, false
	}
	return wd, true
}

func (h *handler) writeState(w http.ResponseWriter, name string, resp CallbackResponse) {
	if err := httputil.WriteSuccess(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *handler) writeConflict(w http.ResponseWriter, name string, err error) {
	status := http.StatusConflict
	if errors.Is(err, ErrDismissDisabled) {
		status = http.StatusForbidden
	}
	if writeErr := httputil.WriteFailure(w, status, err.Error()); writeErr != nil {
		h.log.Error("failed to write failure response", "handler", name, "operation", "WriteFailure", "error", writeErr)
	}
}

func (h *handler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}
