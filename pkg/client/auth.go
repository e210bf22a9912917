package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/errors"
	"carrierhub/pkg/model"
)

// Login authenticates a student and persists the user pair.
func (c *APIClient) Login(ctx context.Context, req model.LoginRequest) *model.Envelope[model.AuthResponse] {
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.AuthResponse](appErr)
	}

	env := call[model.AuthResponse](ctx, c, http.MethodPost, "/auth/login", req)
	return c.persistUser(ctx, env)
}

func (c *APIClient) Register(ctx context.Context, req model.RegisterRequest) *model.Envelope[model.AuthResponse] {
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.AuthResponse](appErr)
	}

	env := call[model.AuthResponse](ctx, c, http.MethodPost, "/auth/register", req)
	return c.persistUser(ctx, env)
}

func (c *APIClient) Me(ctx context.Context) *model.Envelope[model.User] {
	return call[model.User](ctx, c, http.MethodGet, "/auth/me", nil)
}

// Logout drops the user pair and every cached response.
func (c *APIClient) Logout(ctx context.Context) error {
	c.cache.Clear()
	return c.session.ClearUser(ctx)
}

func (c *APIClient) AdminLogin(ctx context.Context, req model.LoginRequest) *model.Envelope[model.AdminAuthResponse] {
	if appErr := c.validator.Struct(req); appErr != nil {
		return invalid[model.AdminAuthResponse](appErr)
	}

	env := call[model.AdminAuthResponse](ctx, c, http.MethodPost, "/auth/admin/login", req)
	if !env.Success {
		return env
	}
	if err := c.session.SaveAdmin(ctx, env.Data.Token, env.Data.Admin); err != nil {
		return invalid[model.AdminAuthResponse](errors.Wrap(err, errors.KindAuth, errors.CodeUnauthorized, "Login succeeded but the session could not be saved"))
	}
	return env
}

func (c *APIClient) AdminLogout(ctx context.Context) error {
	c.cache.InvalidatePattern("admin")
	return c.session.ClearAdmin(ctx)
}

func (c *APIClient) persistUser(ctx context.Context, env *model.Envelope[model.AuthResponse]) *model.Envelope[model.AuthResponse] {
	if !env.Success {
		return env
	}
	if err := c.session.SaveUser(ctx, env.Data.Token, env.Data.User); err != nil {
		return invalid[model.AuthResponse](errors.Wrap(err, errors.KindAuth, errors.CodeUnauthorized, "Login succeeded but the session could not be saved"))
	}
	c.invalidateBookings()
	return env
}
