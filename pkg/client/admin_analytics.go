package client

import (
	"context"
	"net/http"

	"carrierhub/pkg/model"
)

func (c *APIClient) DashboardStats(ctx context.Context) *model.Envelope[model.DashboardStats] {
	return call[model.DashboardStats](ctx, c, http.MethodGet, "/admin/dashboard/stats", nil)
}

func (c *APIClient) RevenueAnalytics(ctx context.Context, period model.RevenuePeriod) *model.Envelope[[]model.RevenuePoint] {
	q := newQuery().str("period", string(period))
	return call[[]model.RevenuePoint](ctx, c, http.MethodGet, q.path("/admin/analytics/revenue"), nil)
}
