package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/model"
)

// CreateBooking creates a PENDING booking and invalidates cached booking
// lists on success.
func (c *APIClient) CreateBooking(ctx context.Context, req model.CreateBookingRequest) *model.Envelope[model.Booking] {
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.Booking](appErr)
	}

	env := call[model.Booking](ctx, c, http.MethodPost, "/bookings", req)
	if env.Success {
		c.invalidateBookings()
	}
	return env
}

func (c *APIClient) MyBookings(ctx context.Context) *model.Envelope[[]model.Booking] {
	return cachedGet[[]model.Booking](ctx, c, cacheKeyMyBookings, c.ttl.Bookings, "/bookings/me")
}

func (c *APIClient) Booking(ctx context.Context, id int) *model.Envelope[model.Booking] {
	return call[model.Booking](ctx, c, http.MethodGet, idPath("/bookings", id), nil)
}
