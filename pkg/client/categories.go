package client

import (
	"context"

	"carrierhub/pkg/model"
)

// Categories lists consultation categories; served from cache for the
// categories TTL.
func (c *APIClient) Categories(ctx context.Context) *model.Envelope[[]model.Category] {
	return cachedGet[[]model.Category](ctx, c, cacheKeyCategories, c.ttl.Categories, "/categories")
}
