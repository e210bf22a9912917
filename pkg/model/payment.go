package model

// PaymentOrder is issued by the backend for one payment attempt and
// consumed once by the checkout widget.
type PaymentOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type CreatePaymentOrderRequest struct {
	BookingID int `json:"bookingId" validate:"required,gt=0"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	BookingID         int    `json:"bookingId" validate:"required,gt=0"`
}

type VerifyPaymentResponse struct {
	Booking  *Booking `json:"booking,omitempty"`
	Verified bool     `json:"verified"`
}
