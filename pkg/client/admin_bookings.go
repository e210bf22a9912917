package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/model"
)

func bookingFilterQuery(f model.BookingFilter) *query {
	return newQuery().
		str("status", string(f.Status)).
		str("consultantType", string(f.ConsultantType)).
		str("search", f.Search).
		date("startDate", f.From).
		date("endDate", f.To).
		num("page", f.Page).
		num("limit", f.Limit)
}

func (c *APIClient) AdminBookings(ctx context.Context, f model.BookingFilter) *model.Envelope[model.BookingList] {
	return call[model.BookingList](ctx, c, http.MethodGet, bookingFilterQuery(f).path("/admin/bookings"), nil)
}

func (c *APIClient) AdminBooking(ctx context.Context, id int) *model.Envelope[model.Booking] {
	return call[model.Booking](ctx, c, http.MethodGet, idPath("/admin/bookings", id), nil)
}

func (c *APIClient) UpdateBookingStatus(ctx context.Context, id int, status model.BookingStatus) *model.Envelope[model.Booking] {
	req := model.UpdateBookingStatusRequest{Status: status}
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.Booking](appErr)
	}

	env := call[model.Booking](ctx, c, http.MethodPatch, idPath("/admin/bookings", id, "status"), req)
	if env.Success {
		c.invalidateBookings()
	}
	return env
}

func (c *APIClient) DeleteBooking(ctx context.Context, id int) *model.Envelope[Empty] {
	env := call[Empty](ctx, c, http.MethodDelete, idPath("/admin/bookings", id), nil)
	if env.Success {
		c.invalidateBookings()
	}
	return env
}

// ExportBookings downloads the filtered bookings as CSV.
func (c *APIClient) ExportBookings(ctx context.Context, f model.BookingFilter) *model.Envelope[Blob] {
	f.Page, f.Limit = 0, 0
	return blob(ctx, c, http.MethodGet, bookingFilterQuery(f).path("/admin/bookings/export"), nil,
		WithHeader("Accept", "text/csv"))
}
