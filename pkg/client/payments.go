package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/model"
)

func (c *APIClient) CreatePaymentOrder(ctx context.Context, bookingID int) *model.Envelope[model.PaymentOrder] {
	req := model.CreatePaymentOrderRequest{BookingID: bookingID}
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.PaymentOrder](appErr)
	}
	return call[model.PaymentOrder](ctx, c, http.MethodPost, "/payments/create", req)
}

// VerifyPayment submits the widget's signed identifiers. A verified
// payment changes booking status, so cached lists are dropped.
func (c *APIClient) VerifyPayment(ctx context.Context, req model.VerifyPaymentRequest) *model.Envelope[model.VerifyPaymentResponse] {
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.VerifyPaymentResponse](appErr)
	}

	env := call[model.VerifyPaymentResponse](ctx, c, http.MethodPost, "/payments/verify", req)
	if env.Success {
		c.invalidateBookings()
	}
	return env
}
