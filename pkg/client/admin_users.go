package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/model"
)

func (c *APIClient) AdminUsers(ctx context.Context, f model.UserFilter) *model.Envelope[model.UserList] {
	q := newQuery().
		str("search", f.Search).
		str("role", string(f.Role)).
		num("page", f.Page).
		num("limit", f.Limit)
	return call[model.UserList](ctx, c, http.MethodGet, q.path("/admin/users"), nil)
}

func (c *APIClient) AdminUser(ctx context.Context, id int) *model.Envelope[model.User] {
	return call[model.User](ctx, c, http.MethodGet, idPath("/admin/users", id), nil)
}

func (c *APIClient) UpdateUser(ctx context.Context, id int, upd model.UserUpdate) *model.Envelope[model.User] {
	if appErr := c.validator.Struct(upd); appErr != nil {
		return invalid[model.User](appErr)
	}
	return call[model.User](ctx, c, http.MethodPatch, idPath("/admin/users", id), upd)
}

// DeleteUser also drops cached booking lists since the backend removes the
// user's bookings with them.
func (c *APIClient) DeleteUser(ctx context.Context, id int) *model.Envelope[Empty] {
	env := call[Empty](ctx, c, http.MethodDelete, idPath("/admin/users", id), nil)
	if env.Success {
		c.invalidateBookings()
	}
	return env
}
